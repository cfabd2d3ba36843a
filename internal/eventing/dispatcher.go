package eventing

import (
	"context"
	"log"
)

// Dispatcher drains the outbox and hands payment events to the
// in-process bus. Records that cannot be decoded or delivered are
// quarantined in the dead letter store so they stop blocking the
// pending set.
type Dispatcher struct {
	bus      EventBus
	outbox   OutboxStore
	registry *Registry
	dlq      DLQStore

	// Logger scopes delivery failures to the order and event involved.
	Logger *log.Logger
}

// EventBus is the minimal publish interface.
type EventBus interface {
	Publish(ctx context.Context, event any) error
}

// OutboxStore provides access to outbox records.
type OutboxStore interface {
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// DLQStore records failures.
type DLQStore interface {
	RecordFailure(ctx context.Context, env Envelope, err error) error
}

// OutboxRecord represents a pending outbox entry.
type OutboxRecord struct {
	ID       string
	Envelope Envelope
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(bus EventBus, outbox OutboxStore, registry *Registry, dlq DLQStore) *Dispatcher {
	return &Dispatcher{bus: bus, outbox: outbox, registry: registry, dlq: dlq}
}

// Dispatch pulls up to limit pending outbox records and delivers them.
// A record leaves the pending set exactly once, as sent or as failed.
func (d *Dispatcher) Dispatch(ctx context.Context, limit int) error {
	if d == nil || d.outbox == nil || d.bus == nil || d.registry == nil {
		return nil
	}
	if limit <= 0 {
		limit = 50
	}
	records, err := d.outbox.ListPending(ctx, limit)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := d.deliver(ctx, record); err != nil {
			d.quarantine(ctx, record, err)
			continue
		}
		_ = d.outbox.MarkSent(ctx, record.ID)
	}
	return nil
}

// deliver decodes the payment event and publishes it with its envelope
// on the context, so handlers see event, tenant and order ids.
func (d *Dispatcher) deliver(ctx context.Context, record OutboxRecord) error {
	payload, err := d.registry.DecodePayload(record.Envelope)
	if err != nil {
		return err
	}
	return d.bus.Publish(WithEnvelope(ctx, record.Envelope), payload)
}

func (d *Dispatcher) quarantine(ctx context.Context, record OutboxRecord, cause error) {
	env := record.Envelope
	if d.Logger != nil {
		d.Logger.Printf("event delivery failed event=%s type=%s order=%s: %v",
			env.EventID, env.EventType, env.OrderID, cause)
	}
	_ = d.outbox.MarkFailed(ctx, record.ID)
	if d.dlq != nil {
		_ = d.dlq.RecordFailure(ctx, env, cause)
	}
}
