// Package store implements the Postgres-backed state store (spec.md
// §4.H): upload record lifecycle, the pending-job queue, and soft/hard
// deletion, all driven through sqlx over a pgx connection pool.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/Aviraj-Roy/billverify/internal/config"
	apperrors "github.com/Aviraj-Roy/billverify/internal/errors"
	"github.com/Aviraj-Roy/billverify/pkg/artifact"
	"github.com/Aviraj-Roy/billverify/pkg/model"
)

// Store is the state store collaborator. It wraps a pgx connection pool
// with sqlx for query convenience, matching the teacher's own pattern of
// layering a query helper over a pgx-managed pool rather than driving
// database/sql directly.
type Store struct {
	db  *sqlx.DB
	cfg *config.StoreConfig
}

// New wraps an already-connected pgx pool (see internal/database.Connect)
// in a sqlx.DB via pgx's stdlib adapter, so the pool's lifecycle and
// connection limits stay owned by pgxpool while queries use sqlx's
// ergonomics.
func New(pool *pgxpool.Pool, cfg *config.StoreConfig) *Store {
	sqlDB := stdlib.OpenDBFromPool(pool)
	return &Store{db: sqlx.NewDb(sqlDB, "pgx"), cfg: cfg}
}

// EnsureSchema creates the upload_records table and its indices if they
// do not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.NewStoreUnavailable(err, "ensure_schema")
	}
	return nil
}

// CreateUploadRecord inserts a new upload record idempotently on
// ingestion_request_id (spec.md §4.H): a retried submission with the
// same ingestion_request_id returns the existing record rather than
// creating a duplicate — but only when that existing record is
// non-FAILED. A prior attempt that ended in FAILED does not block a
// fresh retry: idx_upload_records_ingestion_request_id_active only
// enforces uniqueness among non-FAILED rows, so the insert below
// proceeds (and a new record is created and staged/enqueued normally)
// whenever every existing row sharing this ingestion_request_id has
// already failed.
func (s *Store) CreateUploadRecord(ctx context.Context, rec model.UploadRecord) (model.UploadRecord, error) {
	now := rec.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	const q = `
INSERT INTO upload_records (
	upload_id, ingestion_request_id, employee_id, hospital_name,
	original_filename, file_size_bytes, page_count,
	status, verification_status, queue_position,
	created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
)
ON CONFLICT (ingestion_request_id) WHERE status != 'FAILED' DO NOTHING`

	_, err := s.db.ExecContext(ctx, q,
		rec.UploadID, rec.IngestionRequestID, rec.EmployeeID, rec.HospitalName,
		rec.OriginalFilename, rec.FileSizeBytes, rec.PageCount,
		model.StatusPending, model.VerificationNone, rec.QueuePosition,
		now,
	)
	if err != nil {
		return model.UploadRecord{}, apperrors.NewStoreUnavailable(err, "create_upload_record")
	}

	created, err := s.GetUploadRecord(ctx, rec.UploadID)
	if err == nil {
		return created, nil
	}

	// The insert was skipped by ON CONFLICT: some other non-FAILED row
	// already holds this ingestion_request_id. Fetch it directly.
	return s.GetByIngestionRequestID(ctx, rec.IngestionRequestID)
}

// GetByIngestionRequestID fetches the active (non-FAILED) record for a
// caller-supplied idempotency key. Multiple FAILED rows may share an
// ingestion_request_id (each a separate failed attempt); at most one
// non-FAILED row can, per idx_upload_records_ingestion_request_id_active.
func (s *Store) GetByIngestionRequestID(ctx context.Context, ingestionRequestID string) (model.UploadRecord, error) {
	const q = `SELECT * FROM upload_records WHERE ingestion_request_id = $1 AND status != 'FAILED'`
	return s.scanOne(ctx, q, ingestionRequestID)
}

// GetUploadRecord fetches a record by its primary key.
func (s *Store) GetUploadRecord(ctx context.Context, uploadID string) (model.UploadRecord, error) {
	const q = `SELECT * FROM upload_records WHERE upload_id = $1`
	return s.scanOne(ctx, q, uploadID)
}

// EnqueueUploadJob assigns the next queue position to a PENDING record
// so FIFO ordering within claim_next_pending_job is preserved.
func (s *Store) EnqueueUploadJob(ctx context.Context, uploadID string) error {
	const q = `
UPDATE upload_records
SET queue_position = COALESCE((SELECT MAX(queue_position) FROM upload_records WHERE status = 'PENDING'), 0) + 1,
    updated_at = now()
WHERE upload_id = $1 AND status = 'PENDING'`
	tag, err := s.db.ExecContext(ctx, q, uploadID)
	if err != nil {
		return apperrors.NewStoreUnavailable(err, "enqueue_upload_job")
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return apperrors.NewNotFound("upload")
	}
	return nil
}

// ClaimNextPendingJob atomically claims the oldest PENDING record,
// transitioning it to PROCESSING and stamping a lease expiry, using
// SELECT ... FOR UPDATE SKIP LOCKED so concurrent worker instances never
// claim the same row twice (spec.md §4.H, §4.I).
func (s *Store) ClaimNextPendingJob(ctx context.Context) (model.UploadRecord, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.UploadRecord{}, false, apperrors.NewStoreUnavailable(err, "claim_next_pending_job")
	}
	defer tx.Rollback()

	const selectQ = `
SELECT upload_id FROM upload_records
WHERE status = 'PENDING' AND NOT is_deleted
ORDER BY queue_position ASC, created_at ASC
FOR UPDATE SKIP LOCKED
LIMIT 1`

	var uploadID string
	if err := tx.GetContext(ctx, &uploadID, selectQ); err != nil {
		if err == sql.ErrNoRows {
			return model.UploadRecord{}, false, nil
		}
		return model.UploadRecord{}, false, apperrors.NewStoreUnavailable(err, "claim_next_pending_job")
	}

	leaseExpiry := time.Now().UTC().Add(s.cfg.LeaseTTL)
	const updateQ = `
UPDATE upload_records
SET status = 'PROCESSING', queue_lease_expires_at = $2,
    processing_started_at = now(), updated_at = now()
WHERE upload_id = $1`
	if _, err := tx.ExecContext(ctx, updateQ, uploadID, leaseExpiry); err != nil {
		return model.UploadRecord{}, false, apperrors.NewStoreUnavailable(err, "claim_next_pending_job")
	}

	if err := tx.Commit(); err != nil {
		return model.UploadRecord{}, false, apperrors.NewStoreUnavailable(err, "claim_next_pending_job")
	}

	rec, err := s.GetUploadRecord(ctx, uploadID)
	if err != nil {
		return model.UploadRecord{}, false, err
	}
	return rec, true, nil
}

// MarkProcessing sets the record's status to PROCESSING and refreshes its
// lease expiry, whatever the current status; processing_started_at is left
// unchanged. The pipeline worker does not call it: ClaimNextPendingJob
// already moves a claimed record to PROCESSING.
func (s *Store) MarkProcessing(ctx context.Context, uploadID string) error {
	leaseExpiry := time.Now().UTC().Add(s.cfg.LeaseTTL)
	const q = `UPDATE upload_records SET status = 'PROCESSING', queue_lease_expires_at = $2, updated_at = now() WHERE upload_id = $1`
	return s.exec1(ctx, q, "mark_processing", uploadID, leaseExpiry)
}

// CompleteBill persists the extracted bill and transitions the record to
// COMPLETED (spec.md §3, §4.H). Rows that artifact.IsArtifact flags are
// dropped from the stored bill; every category key is kept.
func (s *Store) CompleteBill(ctx context.Context, uploadID string, bill model.ExtractedBill) error {
	kept := make(map[string][]model.ItemRow, len(bill.Items))
	for category, items := range bill.Items {
		kept[category] = make([]model.ItemRow, 0, len(items))
		for _, item := range items {
			if !artifact.IsArtifact(category, item.ItemName, item.Amount, item.Amount) {
				kept[category] = append(kept[category], item)
			}
		}
	}
	bill.Items = kept

	billJSON, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("store: marshal bill: %w", err)
	}
	const q = `
UPDATE upload_records
SET status = 'COMPLETED', bill = $2::jsonb, completed_at = now(),
    queue_lease_expires_at = NULL, updated_at = now()
WHERE upload_id = $1`
	return s.exec1(ctx, q, "complete_bill", uploadID, string(billJSON))
}

// MarkFailed transitions the record to FAILED with an error message.
func (s *Store) MarkFailed(ctx context.Context, uploadID, errMessage string) error {
	const q = `
UPDATE upload_records
SET status = 'FAILED', error_message = $2, queue_lease_expires_at = NULL, updated_at = now()
WHERE upload_id = $1`
	return s.exec1(ctx, q, "mark_failed", uploadID, errMessage)
}

// MarkVerificationProcessing sets the independent verification sub-state
// to PROCESSING (spec.md §3's two-axis lifecycle).
func (s *Store) MarkVerificationProcessing(ctx context.Context, uploadID string) error {
	const q = `UPDATE upload_records SET verification_status = 'PROCESSING', updated_at = now() WHERE upload_id = $1`
	return s.exec1(ctx, q, "mark_verification_processing", uploadID)
}

// MarkVerificationComplete persists the verification result and marks
// the verification sub-state COMPLETED.
func (s *Store) MarkVerificationComplete(ctx context.Context, uploadID string, result model.VerificationResult, renderedText string) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("store: marshal verification result: %w", err)
	}
	const q = `
UPDATE upload_records
SET verification_status = 'COMPLETED', verification_result = $2::jsonb,
    rendered_text = $3, updated_at = now()
WHERE upload_id = $1`
	return s.exec1(ctx, q, "mark_verification_complete", uploadID, string(resultJSON), renderedText)
}

// MarkVerificationFailed marks the verification sub-state FAILED.
func (s *Store) MarkVerificationFailed(ctx context.Context, uploadID, errMessage string) error {
	const q = `
UPDATE upload_records
SET verification_status = 'FAILED', error_message = $2, updated_at = now()
WHERE upload_id = $1`
	return s.exec1(ctx, q, "mark_verification_failed", uploadID, errMessage)
}

// SaveLineItemEdits persists manual corrections against an already
// extracted bill without mutating the stored bill itself (spec.md
// "Manual edits").
func (s *Store) SaveLineItemEdits(ctx context.Context, uploadID string, edits []model.LineItemEdit) error {
	editsJSON, err := json.Marshal(edits)
	if err != nil {
		return fmt.Errorf("store: marshal line item edits: %w", err)
	}
	const q = `UPDATE upload_records SET line_item_edits = $2::jsonb, updated_at = now() WHERE upload_id = $1`
	return s.exec1(ctx, q, "save_line_item_edits", uploadID, string(editsJSON))
}

// SoftDelete marks a record deleted without removing it, recording who
// performed the deletion (spec.md §6's delete_bill).
func (s *Store) SoftDelete(ctx context.Context, uploadID, deletedBy string) error {
	const q = `
UPDATE upload_records
SET is_deleted = true, deleted_at = now(), deleted_by = $2, updated_at = now()
WHERE upload_id = $1 AND NOT is_deleted`
	tag, err := s.db.ExecContext(ctx, q, uploadID, deletedBy)
	if err != nil {
		return apperrors.NewStoreUnavailable(err, "soft_delete")
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return apperrors.NewAlreadyDeleted("upload")
	}
	return nil
}

// Restore reverses a SoftDelete (spec.md §6's restore_bill).
func (s *Store) Restore(ctx context.Context, uploadID string) error {
	const q = `
UPDATE upload_records
SET is_deleted = false, deleted_at = NULL, deleted_by = '', updated_at = now()
WHERE upload_id = $1 AND is_deleted`
	tag, err := s.db.ExecContext(ctx, q, uploadID)
	if err != nil {
		return apperrors.NewStoreUnavailable(err, "restore")
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return apperrors.NewNotDeleted("upload")
	}
	return nil
}

// HardDelete permanently removes a record. It requires the record to
// already be soft-deleted (spec.md §6's permanent_delete_bill is a
// two-step operation: soft delete, then a separate confirmation).
func (s *Store) HardDelete(ctx context.Context, uploadID string) error {
	const q = `DELETE FROM upload_records WHERE upload_id = $1 AND is_deleted`
	tag, err := s.db.ExecContext(ctx, q, uploadID)
	if err != nil {
		return apperrors.NewStoreUnavailable(err, "hard_delete")
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return apperrors.NewNotDeleted("upload")
	}
	return nil
}

// ListExpiredSoftDeletes returns the upload_ids of every soft-deleted
// record whose deleted_at is older than the given cutoff, for the
// retention worker (spec.md §4.J).
func (s *Store) ListExpiredSoftDeletes(ctx context.Context, olderThan time.Time) ([]string, error) {
	const q = `SELECT upload_id FROM upload_records WHERE is_deleted AND deleted_at <= $1`
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, q, olderThan); err != nil {
		return nil, apperrors.NewStoreUnavailable(err, "list_expired_soft_deletes")
	}
	return ids, nil
}

// RecomputePendingQueuePositions renumbers every PENDING record's queue
// position by creation order, closing gaps left by claims and deletes
// (spec.md §4.H).
func (s *Store) RecomputePendingQueuePositions(ctx context.Context) error {
	const q = `
WITH ordered AS (
	SELECT upload_id, ROW_NUMBER() OVER (ORDER BY created_at ASC) AS rn
	FROM upload_records
	WHERE status = 'PENDING' AND NOT is_deleted
)
UPDATE upload_records u
SET queue_position = ordered.rn, updated_at = now()
FROM ordered
WHERE u.upload_id = ordered.upload_id`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return apperrors.NewStoreUnavailable(err, "recompute_pending_queue_positions")
	}
	return nil
}

// ReconcileQueueState requeues PROCESSING records whose lease has
// expired (a worker crashed mid-job) back to PENDING, per spec.md §4.H's
// stale-lease recovery rule, but only once their processing started more
// than StaleProcessing ago; a record with an expired lease that started
// more recently stays PROCESSING. It returns the number of records
// reclaimed.
func (s *Store) ReconcileQueueState(ctx context.Context) (int, error) {
	const q = `
UPDATE upload_records
SET status = 'PENDING', queue_lease_expires_at = NULL, processing_started_at = NULL, updated_at = now()
WHERE status = 'PROCESSING'
  AND (queue_lease_expires_at IS NULL OR queue_lease_expires_at < now())
  AND processing_started_at < now() - $1::interval`
	tag, err := s.db.ExecContext(ctx, q, s.cfg.StaleProcessing.String())
	if err != nil {
		return 0, apperrors.NewStoreUnavailable(err, "reconcile_queue_state")
	}
	n, _ := tag.RowsAffected()
	return int(n), nil
}

// ListBills implements list_bills (spec.md §6): filtered, bounded
// listing ordered by most-recent updated_at first.
func (s *Store) ListBills(ctx context.Context, filter model.ListFilter) ([]model.UploadRecord, error) {
	q := `SELECT * FROM upload_records WHERE 1=1`
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeDeleted {
		q += ` AND NOT is_deleted`
	}
	if filter.Status != "" {
		q += ` AND status = ` + arg(filter.Status)
	}
	if filter.Hospital != "" {
		q += ` AND hospital_name = ` + arg(filter.Hospital)
	}
	if filter.Since != nil {
		q += ` AND created_at >= ` + arg(*filter.Since)
	}
	if filter.Until != nil {
		q += ` AND created_at <= ` + arg(*filter.Until)
	}
	q += ` ORDER BY updated_at DESC LIMIT ` + arg(filter.NormalizedLimit())

	rows, err := s.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err, "list_bills")
	}
	defer rows.Close()

	var out []model.UploadRecord
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) exec1(ctx context.Context, q, op string, args ...interface{}) error {
	tag, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return apperrors.NewStoreUnavailable(err, op)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return apperrors.NewNotFound("upload")
	}
	return nil
}

func (s *Store) scanOne(ctx context.Context, q string, arg string) (model.UploadRecord, error) {
	row := s.db.QueryRowxContext(ctx, q, arg)
	rec, err := scanRow(row)
	if err == sql.ErrNoRows {
		return model.UploadRecord{}, apperrors.NewNotFound("upload")
	}
	if err != nil {
		return model.UploadRecord{}, apperrors.NewStoreUnavailable(err, "scan_upload_record")
	}
	return rec, nil
}
