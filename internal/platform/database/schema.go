package database

// Schema is the full DDL for the pipeline store. cmd/migrate applies it;
// repository tests run it against :memory: databases.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id          TEXT PRIMARY KEY,
	event_type        TEXT NOT NULL,
	workspace_id      TEXT NOT NULL,
	call_id           TEXT,
	user_id           TEXT,
	received_at       INTEGER NOT NULL,
	payload           TEXT NOT NULL,
	processing_status TEXT NOT NULL DEFAULT 'pending',
	relevance_score   REAL,
	insights          TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_events_workspace ON events(workspace_id, received_at);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(processing_status);

CREATE TABLE IF NOT EXISTS notifications (
	id                TEXT PRIMARY KEY,
	event_id          TEXT NOT NULL REFERENCES events(event_id),
	workspace_id      TEXT NOT NULL,
	priority          TEXT NOT NULL DEFAULT 'normal',
	title             TEXT NOT NULL,
	message           TEXT NOT NULL,
	action_required   INTEGER NOT NULL DEFAULT 0,
	delivery_status   TEXT NOT NULL DEFAULT 'pending',
	delivery_attempts INTEGER NOT NULL DEFAULT 0,
	last_error        TEXT,
	created_at        INTEGER NOT NULL,
	delivered_at      INTEGER
);

CREATE INDEX IF NOT EXISTS idx_notifications_delivery ON notifications(delivery_status, delivery_attempts);
CREATE INDEX IF NOT EXISTS idx_notifications_workspace ON notifications(workspace_id, created_at);

CREATE TABLE IF NOT EXISTS subscriptions (
	id           TEXT PRIMARY KEY,
	customer_id  TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	event_types  TEXT NOT NULL DEFAULT '[]',
	target_url   TEXT NOT NULL,
	secret       TEXT NOT NULL,
	active       INTEGER NOT NULL DEFAULT 1,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	UNIQUE(customer_id, workspace_id)
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_workspace ON subscriptions(workspace_id);
`

// SchemaDown drops everything Schema creates, newest tables first.
const SchemaDown = `
DROP TABLE IF EXISTS notifications;
DROP TABLE IF EXISTS subscriptions;
DROP TABLE IF EXISTS events;
`
