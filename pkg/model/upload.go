package model

import "time"

// Status is the primary upload lifecycle state (spec.md §3).
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// VerificationStatus is the independent sub-state tracking the
// verification stage (spec.md §3).
type VerificationStatus string

const (
	VerificationNone       VerificationStatus = "NONE"
	VerificationProcessing VerificationStatus = "PROCESSING"
	VerificationCompleted  VerificationStatus = "COMPLETED"
	VerificationFailed     VerificationStatus = "FAILED"
)

// ProcessingStage is a derived, human-facing label computed from
// (Status, VerificationStatus) — see SPEC_FULL.md's get_status supplement.
type ProcessingStage string

const (
	StageQueued     ProcessingStage = "queued"
	StageExtracting ProcessingStage = "extracting"
	StageVerifying  ProcessingStage = "verifying"
	StageDone       ProcessingStage = "done"
	StageFailed     ProcessingStage = "failed"
)

// DeriveProcessingStage implements the get_status supplement from
// SPEC_FULL.md: the stage is a pure function of the two lifecycle enums.
func DeriveProcessingStage(status Status, verification VerificationStatus) ProcessingStage {
	switch status {
	case StatusPending:
		return StageQueued
	case StatusFailed:
		return StageFailed
	case StatusProcessing:
		if verification == VerificationProcessing {
			return StageVerifying
		}
		return StageExtracting
	case StatusCompleted:
		switch verification {
		case VerificationProcessing:
			return StageVerifying
		case VerificationCompleted, VerificationFailed:
			return StageDone
		default:
			return StageDone
		}
	default:
		return StageQueued
	}
}

// UploadRecord is the single document persisted per submitted PDF
// (spec.md §3). upload_id is a random 128-bit hex string.
type UploadRecord struct {
	UploadID           string
	IngestionRequestID string
	EmployeeID         string
	HospitalName       string
	OriginalFilename   string
	FileSizeBytes      int64
	PageCount          int

	Status             Status
	VerificationStatus VerificationStatus
	QueuePosition      int
	QueueLeaseExpiresAt *time.Time
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
	ErrorMessage        string

	CreatedAt time.Time
	UpdatedAt time.Time

	IsDeleted bool
	DeletedAt *time.Time
	DeletedBy string

	Bill               *ExtractedBill
	VerificationResult *VerificationResult
	RenderedText       string

	LineItemEdits []LineItemEdit
}

// ProcessingStage derives the user-facing stage for this record.
func (u *UploadRecord) ProcessingStage() ProcessingStage {
	return DeriveProcessingStage(u.Status, u.VerificationStatus)
}

// ListFilter bounds and filters list_bills (spec.md §6, SPEC_FULL.md
// supplement). Limit is clamped to [1,500] by the store.
type ListFilter struct {
	Scope     string
	Status    Status
	Hospital  string
	Since     *time.Time
	Until     *time.Time
	Limit     int
	IncludeDeleted bool
}

const MaxListLimit = 500
const DefaultListLimit = 50

// NormalizedLimit clamps Limit into the allowed range.
func (f ListFilter) NormalizedLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		return MaxListLimit
	}
	return f.Limit
}
