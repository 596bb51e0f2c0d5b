package store

// schema is executed once at startup (EnsureSchema) and is safe to run
// against an already-migrated database. The backbone has no migration
// tool in its dependency stack, so the schema is kept as one idempotent
// statement block rather than a versioned migration chain.
const schema = `
CREATE TABLE IF NOT EXISTS upload_records (
	upload_id              TEXT PRIMARY KEY,
	ingestion_request_id   TEXT NOT NULL,
	employee_id            TEXT NOT NULL DEFAULT '',
	hospital_name          TEXT NOT NULL DEFAULT '',
	original_filename      TEXT NOT NULL DEFAULT '',
	file_size_bytes        BIGINT NOT NULL DEFAULT 0,
	page_count             INT NOT NULL DEFAULT 0,

	status                 TEXT NOT NULL,
	verification_status    TEXT NOT NULL,
	queue_position         INT NOT NULL DEFAULT 0,
	queue_lease_expires_at TIMESTAMPTZ,
	processing_started_at  TIMESTAMPTZ,
	completed_at           TIMESTAMPTZ,
	error_message          TEXT NOT NULL DEFAULT '',

	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now(),

	is_deleted             BOOLEAN NOT NULL DEFAULT false,
	deleted_at             TIMESTAMPTZ,
	deleted_by             TEXT NOT NULL DEFAULT '',

	bill                   JSONB,
	verification_result    JSONB,
	rendered_text          TEXT NOT NULL DEFAULT '',
	line_item_edits        JSONB NOT NULL DEFAULT '[]'
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_upload_records_ingestion_request_id_active
	ON upload_records (ingestion_request_id) WHERE status != 'FAILED';
CREATE INDEX IF NOT EXISTS idx_upload_records_status ON upload_records (status) WHERE NOT is_deleted;
CREATE INDEX IF NOT EXISTS idx_upload_records_queue ON upload_records (queue_position) WHERE status = 'PENDING' AND NOT is_deleted;
CREATE INDEX IF NOT EXISTS idx_upload_records_hospital ON upload_records (hospital_name) WHERE NOT is_deleted;
`
