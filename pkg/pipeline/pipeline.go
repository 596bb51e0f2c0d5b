// Package pipeline implements the Upload Pipeline (spec.md §4.I): the
// synchronous acceptance path for submit_upload, and the single
// background worker goroutine that drives each queued job through OCR,
// extraction, and verification.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Aviraj-Roy/billverify/internal/config"
	apperrors "github.com/Aviraj-Roy/billverify/internal/errors"
	"github.com/Aviraj-Roy/billverify/pkg/extract"
	"github.com/Aviraj-Roy/billverify/pkg/metrics"
	"github.com/Aviraj-Roy/billverify/pkg/model"
	"github.com/Aviraj-Roy/billverify/pkg/ocr"
	"github.com/Aviraj-Roy/billverify/pkg/render"
	"github.com/Aviraj-Roy/billverify/pkg/verifier"
)

// Store is the narrow slice of pkg/store this pipeline depends on, kept
// as an interface so acceptance and worker-loop behavior can be tested
// without a live database (mirrors pkg/retention's own Store interface).
type Store interface {
	CreateUploadRecord(ctx context.Context, rec model.UploadRecord) (model.UploadRecord, error)
	GetUploadRecord(ctx context.Context, uploadID string) (model.UploadRecord, error)
	EnqueueUploadJob(ctx context.Context, uploadID string) error
	ClaimNextPendingJob(ctx context.Context) (model.UploadRecord, bool, error)
	ReconcileQueueState(ctx context.Context) (int, error)
	RecomputePendingQueuePositions(ctx context.Context) error
	CompleteBill(ctx context.Context, uploadID string, bill model.ExtractedBill) error
	MarkVerificationProcessing(ctx context.Context, uploadID string) error
	MarkVerificationComplete(ctx context.Context, uploadID string, result model.VerificationResult, renderedText string) error
	MarkVerificationFailed(ctx context.Context, uploadID, errMessage string) error
	MarkFailed(ctx context.Context, uploadID, errMessage string) error
}

// wakeChannel is the pub/sub channel enqueue_upload_job publishes to so
// an idle worker doesn't wait out its full reconcile_interval before
// picking up a fresh job (grounded on the teacher gateway's Redis
// integration, repurposed here as a wake signal rather than dedup state).
const wakeChannel = "billverify:queue:wake"

// SubmitRequest is the caller-supplied content of submit_upload
// (spec.md §6). ClientRequestID is optional.
type SubmitRequest struct {
	Bytes            []byte
	EmployeeID       string
	HospitalName     string
	ClientRequestID  string
	OriginalFilename string
}

// SubmitResponse mirrors submit_upload's return shape.
type SubmitResponse struct {
	UploadID         string
	Status           model.Status
	QueuePosition    int
	OriginalFilename string
	FileSizeBytes    int64
}

// Pipeline owns the acceptance path and the background worker.
type Pipeline struct {
	store    Store
	ocrEng   ocr.Engine
	verifier *verifier.Verifier
	redis    *redis.Client
	cfg      *config.PipelineConfig
	logger   logr.Logger
}

func New(st Store, ocrEng ocr.Engine, v *verifier.Verifier, redisClient *redis.Client, cfg *config.PipelineConfig, logger logr.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &Pipeline{store: st, ocrEng: ocrEng, verifier: v, redis: redisClient, cfg: cfg, logger: logger}
}

// Submit runs the synchronous acceptance path (spec.md §4.I, steps 1-5):
// create the record idempotently, stage bytes to a temp path, enqueue
// it, and wake a sleeping worker.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	if req.EmployeeID == "" || req.HospitalName == "" || len(req.Bytes) == 0 {
		return SubmitResponse{}, apperrors.NewInvalidInput("employee_id, hospital_name, and file bytes are required")
	}

	fileSize := int64(len(req.Bytes))
	ingestionRequestID := req.ClientRequestID
	if ingestionRequestID == "" {
		ingestionRequestID = deterministicHash(req.EmployeeID, req.HospitalName, req.Bytes)
	}

	uploadID := uuid.NewString()
	rec, err := p.store.CreateUploadRecord(ctx, model.UploadRecord{
		UploadID:            uploadID,
		IngestionRequestID:  ingestionRequestID,
		EmployeeID:          req.EmployeeID,
		HospitalName:        req.HospitalName,
		OriginalFilename:    req.OriginalFilename,
		FileSizeBytes:       fileSize,
		QueuePosition:       0,
		CreatedAt:           time.Now().UTC(),
	})
	if err != nil {
		return SubmitResponse{}, err
	}

	// A retried submission with a client-supplied request id resolves to
	// the already-created record; it has already been staged and
	// enqueued, so skip straight to the response.
	if rec.UploadID != uploadID {
		return SubmitResponse{
			UploadID:         rec.UploadID,
			Status:           rec.Status,
			QueuePosition:    rec.QueuePosition,
			OriginalFilename: rec.OriginalFilename,
			FileSizeBytes:    rec.FileSizeBytes,
		}, nil
	}

	if err := p.stagePDF(rec.UploadID, req.Bytes); err != nil {
		return SubmitResponse{}, fmt.Errorf("pipeline: stage pdf: %w", err)
	}

	if err := p.store.EnqueueUploadJob(ctx, rec.UploadID); err != nil {
		return SubmitResponse{}, err
	}

	rec, err = p.store.GetUploadRecord(ctx, rec.UploadID)
	if err != nil {
		return SubmitResponse{}, err
	}

	metrics.RecordUploadAccepted()
	p.wake(ctx)

	return SubmitResponse{
		UploadID:         rec.UploadID,
		Status:           rec.Status,
		QueuePosition:    rec.QueuePosition,
		OriginalFilename: rec.OriginalFilename,
		FileSizeBytes:    rec.FileSizeBytes,
	}, nil
}

func deterministicHash(employeeID, hospitalName string, bytes []byte) string {
	contentSum := sha256.Sum256(bytes)
	h := sha256.New()
	h.Write([]byte(employeeID))
	h.Write([]byte(hospitalName))
	h.Write(contentSum[:])
	return hex.EncodeToString(h.Sum(nil))
}

func (p *Pipeline) tempPath(uploadID string) string {
	return filepath.Join(p.cfg.TempDir, uploadID, "source.pdf")
}

func (p *Pipeline) stagePDF(uploadID string, bytes []byte) error {
	dir := filepath.Dir(p.tempPath(uploadID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.tempPath(uploadID), bytes, 0o644)
}

func (p *Pipeline) wake(ctx context.Context) {
	if p.redis == nil {
		return
	}
	if err := p.redis.Publish(ctx, wakeChannel, "1").Err(); err != nil {
		p.logger.V(1).Info("pipeline: wake publish failed, worker will pick up job on next reconcile tick", "error", err)
	}
}

// Run is the single background worker goroutine (spec.md §4.I). It
// reconciles stale leases on an interval, claims and processes jobs one
// at a time, and sleeps on the wake channel (falling back to a timeout
// equal to reconcile_interval) when the queue is empty.
func (p *Pipeline) Run(ctx context.Context) {
	reconcileTicker := time.NewTicker(p.cfg.ReconcileInterval)
	defer reconcileTicker.Stop()

	var sub *redis.PubSub
	var wakeCh <-chan *redis.Message
	if p.redis != nil {
		sub = p.redis.Subscribe(ctx, wakeChannel)
		defer sub.Close()
		wakeCh = sub.Channel()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-reconcileTicker.C:
			if n, err := p.store.ReconcileQueueState(ctx); err != nil {
				p.logger.Error(err, "pipeline: reconcile queue state failed")
			} else if n > 0 {
				p.logger.Info("pipeline: reclaimed jobs with expired leases", "reclaimed", n)
			}
		default:
		}

		rec, ok, err := p.store.ClaimNextPendingJob(ctx)
		if err != nil {
			p.logger.Error(err, "pipeline: claim next pending job failed")
			p.sleepOrWake(ctx, wakeCh)
			continue
		}
		if !ok {
			p.sleepOrWake(ctx, wakeCh)
			continue
		}

		p.processJob(ctx, rec)
		if err := p.store.RecomputePendingQueuePositions(ctx); err != nil {
			p.logger.Error(err, "pipeline: recompute queue positions failed")
		}
	}
}

// sleepOrWake waits on its own timer so the reconcile ticker's ticks are
// left for the select at the top of Run.
func (p *Pipeline) sleepOrWake(ctx context.Context, wakeCh <-chan *redis.Message) {
	timer := time.NewTimer(p.cfg.ReconcileInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-wakeCh:
	case <-timer.C:
	}
}

// processJob runs process_bill end to end (spec.md §4.I): OCR →
// extraction → complete_bill → verification → save_verification_result,
// always cleaning up the staged temp file. An OCR, extraction or
// complete_bill error transitions the record to FAILED; a verification
// error marks only verification_status FAILED, leaving the record
// COMPLETED. Cleanup runs in every case.
func (p *Pipeline) processJob(ctx context.Context, rec model.UploadRecord) {
	logger := p.logger.WithValues("upload_id", rec.UploadID)
	defer p.cleanupTemp(rec.UploadID)

	started := time.Now()
	pages, err := p.ocrEng.ExtractText(ctx, p.tempPath(rec.UploadID))
	if err != nil {
		p.fail(ctx, rec.UploadID, err, logger)
		return
	}
	metrics.RecordOCRDuration(time.Since(started))

	if ocr.AllFailed(pages) {
		p.fail(ctx, rec.UploadID, apperrors.NewOcrFailure(nil, len(pages)), logger)
		return
	}

	bill, catOrder := extract.ParseBill(pages)
	bill.Header.HospitalName = rec.HospitalName
	if err := p.store.CompleteBill(ctx, rec.UploadID, bill); err != nil {
		p.fail(ctx, rec.UploadID, err, logger)
		return
	}

	if err := p.store.MarkVerificationProcessing(ctx, rec.UploadID); err != nil {
		logger.Error(err, "pipeline: mark verification processing failed")
	}

	input := bill.ToBillInput(rec.HospitalName, catOrder)
	verifyStart := time.Now()
	result, err := p.verifier.Verify(ctx, input)
	if err != nil {
		p.failVerification(ctx, rec.UploadID, err, logger)
		return
	}
	metrics.RecordVerificationDuration(time.Since(verifyStart))
	for _, cat := range result.Categories {
		for _, item := range cat.Items {
			metrics.RecordItemClassified(string(item.Status))
		}
	}

	if violations := render.CheckCompleteness(input, *result); len(violations) > 0 {
		logger.Info("pipeline: completeness check failed", "violations", violations)
	}
	if violations := render.CheckCounters(*result); len(violations) > 0 {
		logger.Info("pipeline: counter check failed", "violations", violations)
	}

	if err := p.store.MarkVerificationComplete(ctx, rec.UploadID, *result, ""); err != nil {
		logger.Error(err, "pipeline: save verification result failed")
	}
}

func (p *Pipeline) fail(ctx context.Context, uploadID string, err error, logger logr.Logger) {
	logger.Error(err, "pipeline: job failed")
	metrics.RecordUploadFailed(failureReason(err))
	if markErr := p.store.MarkFailed(ctx, uploadID, err.Error()); markErr != nil {
		logger.Error(markErr, "pipeline: mark failed also failed")
	}
}

func (p *Pipeline) failVerification(ctx context.Context, uploadID string, err error, logger logr.Logger) {
	logger.Error(err, "pipeline: verification failed")
	metrics.RecordUploadFailed("verification_error")
	if markErr := p.store.MarkVerificationFailed(ctx, uploadID, err.Error()); markErr != nil {
		logger.Error(markErr, "pipeline: mark verification failed also failed")
	}
}

func failureReason(err error) string {
	if apperrors.IsType(err, apperrors.ErrorTypeOcr) {
		return "ocr_failure"
	}
	return "extraction_error"
}

func (p *Pipeline) cleanupTemp(uploadID string) {
	dir := filepath.Dir(p.tempPath(uploadID))
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Error(err, "pipeline: temp cleanup failed", "upload_id", uploadID)
	}
}
