package postgres

// Schema is the DDL for the workflow tables. EnsureSchema applies it at
// startup; the integration test containers apply it the same way.
//
// approval_requests is unique on (entity_type, entity_id): one tracked
// request per entity, forever. approval_audit is keyed on
// (request_id, sequence_no) so duplicate sequence numbers are impossible at
// the storage layer, not just by convention.
const Schema = `
CREATE TABLE IF NOT EXISTS approval_requests (
	id             UUID PRIMARY KEY,
	entity_type    TEXT NOT NULL,
	entity_id      TEXT NOT NULL,
	current_state  TEXT NOT NULL,
	version        BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (entity_type, entity_id)
);

CREATE TABLE IF NOT EXISTS approval_audit (
	request_id   UUID NOT NULL REFERENCES approval_requests(id),
	sequence_no  BIGINT NOT NULL,
	from_state   TEXT NOT NULL,
	to_state     TEXT NOT NULL,
	actor_id     TEXT NOT NULL,
	actor_role   TEXT NOT NULL,
	comment      TEXT NOT NULL DEFAULT '',
	occurred_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (request_id, sequence_no)
);
`
