package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Aviraj-Roy/billverify/pkg/model"
)

// dbRow mirrors the upload_records columns for sqlx.StructScan. Nullable
// columns use database/sql's Null* types; JSON columns are scanned as
// raw bytes and unmarshaled separately, since their Go shape
// (ExtractedBill, VerificationResult) isn't a flat column-per-field.
type dbRow struct {
	UploadID            string         `db:"upload_id"`
	IngestionRequestID  string         `db:"ingestion_request_id"`
	EmployeeID          string         `db:"employee_id"`
	HospitalName        string         `db:"hospital_name"`
	OriginalFilename    string         `db:"original_filename"`
	FileSizeBytes       int64          `db:"file_size_bytes"`
	PageCount           int            `db:"page_count"`
	Status              string         `db:"status"`
	VerificationStatus  string         `db:"verification_status"`
	QueuePosition       int            `db:"queue_position"`
	QueueLeaseExpiresAt sql.NullTime   `db:"queue_lease_expires_at"`
	ProcessingStartedAt sql.NullTime   `db:"processing_started_at"`
	CompletedAt         sql.NullTime   `db:"completed_at"`
	ErrorMessage        string         `db:"error_message"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	IsDeleted           bool           `db:"is_deleted"`
	DeletedAt           sql.NullTime   `db:"deleted_at"`
	DeletedBy           string         `db:"deleted_by"`
	Bill                []byte         `db:"bill"`
	VerificationResult  []byte         `db:"verification_result"`
	RenderedText        string         `db:"rendered_text"`
	LineItemEdits       []byte         `db:"line_item_edits"`
}

// structScanner is satisfied by both *sqlx.Row and *sqlx.Rows.
type structScanner interface {
	StructScan(dest interface{}) error
}

func scanRow(s structScanner) (model.UploadRecord, error) {
	var row dbRow
	if err := s.StructScan(&row); err != nil {
		return model.UploadRecord{}, err
	}
	return row.toModel()
}

func (row dbRow) toModel() (model.UploadRecord, error) {
	rec := model.UploadRecord{
		UploadID:            row.UploadID,
		IngestionRequestID:  row.IngestionRequestID,
		EmployeeID:          row.EmployeeID,
		HospitalName:        row.HospitalName,
		OriginalFilename:    row.OriginalFilename,
		FileSizeBytes:       row.FileSizeBytes,
		PageCount:           row.PageCount,
		Status:              model.Status(row.Status),
		VerificationStatus:  model.VerificationStatus(row.VerificationStatus),
		QueuePosition:       row.QueuePosition,
		ErrorMessage:        row.ErrorMessage,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
		IsDeleted:           row.IsDeleted,
		DeletedBy:           row.DeletedBy,
		RenderedText:        row.RenderedText,
	}

	if row.QueueLeaseExpiresAt.Valid {
		rec.QueueLeaseExpiresAt = &row.QueueLeaseExpiresAt.Time
	}
	if row.ProcessingStartedAt.Valid {
		rec.ProcessingStartedAt = &row.ProcessingStartedAt.Time
	}
	if row.CompletedAt.Valid {
		rec.CompletedAt = &row.CompletedAt.Time
	}
	if row.DeletedAt.Valid {
		rec.DeletedAt = &row.DeletedAt.Time
	}

	if len(row.Bill) > 0 {
		var bill model.ExtractedBill
		if err := json.Unmarshal(row.Bill, &bill); err != nil {
			return model.UploadRecord{}, err
		}
		rec.Bill = &bill
	}
	if len(row.VerificationResult) > 0 {
		var result model.VerificationResult
		if err := json.Unmarshal(row.VerificationResult, &result); err != nil {
			return model.UploadRecord{}, err
		}
		rec.VerificationResult = &result
	}
	if len(row.LineItemEdits) > 0 {
		var edits []model.LineItemEdit
		if err := json.Unmarshal(row.LineItemEdits, &edits); err != nil {
			return model.UploadRecord{}, err
		}
		rec.LineItemEdits = edits
	}

	return rec, nil
}
