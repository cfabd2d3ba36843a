package storage

import (
	"database/sql"
	"fmt"
)

// Migrate ensures all required tables exist. The DDL sticks to types both
// Postgres and SQLite accept, so dev mode can run on a file database.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		line_items TEXT NOT NULL,
		total_amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		result TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		intent_id TEXT NOT NULL UNIQUE,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_order ON transactions(order_id)`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL UNIQUE,
		order_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		line_items TEXT NOT NULL,
		total_amount BIGINT NOT NULL,
		amount_paid BIGINT NOT NULL,
		amount_refunded BIGINT NOT NULL,
		currency TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		issued_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_order ON invoices(order_id)`,

	`CREATE TABLE IF NOT EXISTS ledger_accounts (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		account_type TEXT NOT NULL,
		normal_side TEXT NOT NULL,
		currency TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		posted_at TIMESTAMP NOT NULL,
		source_transaction_id TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_source ON journal_entries(source_transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_posted ON journal_entries(posted_at)`,

	`CREATE TABLE IF NOT EXISTS journal_postings (
		entry_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		account_id TEXT NOT NULL,
		side TEXT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		PRIMARY KEY (entry_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_postings_account ON journal_postings(account_id)`,

	`CREATE TABLE IF NOT EXISTS manual_reviews (
		id TEXT PRIMARY KEY,
		intent_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		opened_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP,
		resolved_by TEXT,
		note TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS event_outbox (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		sent_at TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS processed_events (
		event_id TEXT NOT NULL,
		consumer_name TEXT NOT NULL,
		processed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (event_id, consumer_name)
	)`,

	`CREATE TABLE IF NOT EXISTS dead_letter_events (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		error TEXT NOT NULL,
		first_seen_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL,
		attempts INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		tenant_id TEXT,
		actor TEXT,
		role TEXT,
		action TEXT NOT NULL,
		resource_type TEXT,
		resource_id TEXT,
		order_id TEXT,
		metadata TEXT,
		payload_digest TEXT,
		ip TEXT,
		user_agent TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
}
