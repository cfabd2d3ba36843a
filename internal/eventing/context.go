package eventing

import "context"

type contextKey int

const (
	envelopeKey contextKey = iota
	metaKey
)

// WithEnvelope attaches the delivery envelope so handlers can read the
// event id, tenant and order the payment event belongs to.
func WithEnvelope(ctx context.Context, env Envelope) context.Context {
	return context.WithValue(ctx, envelopeKey, env)
}

// EnvelopeFromContext returns the envelope a handler is running under.
func EnvelopeFromContext(ctx context.Context) (Envelope, bool) {
	env, ok := ctx.Value(envelopeKey).(Envelope)
	return env, ok
}

func withMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, metaKey, meta)
}

// WithCorrelationID tags the context so every event published while
// settling one payment shares a correlation id.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	meta := metaFrom(ctx)
	meta.CorrelationID = correlationID
	return withMeta(ctx, meta)
}

// MetaFromContext returns the seeded metadata, falling back to the
// publisher's tenant when none was set.
func MetaFromContext(ctx context.Context, defaultTenantID string) Meta {
	meta := metaFrom(ctx)
	if meta.TenantID == "" {
		meta.TenantID = defaultTenantID
	}
	return meta
}

func metaFrom(ctx context.Context) Meta {
	if meta, ok := ctx.Value(metaKey).(Meta); ok {
		return meta
	}
	return Meta{}
}
