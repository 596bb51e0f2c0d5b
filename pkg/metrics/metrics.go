// Package metrics defines the process's prometheus collectors and the
// Record* helpers the rest of the backbone calls, following the
// teacher's own pkg/metrics shape: package-level collectors registered
// at init time, thin typed setter functions so callers never touch a
// prometheus type directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billverify_uploads_accepted_total",
		Help: "Total uploads accepted by submit_upload.",
	})

	UploadsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billverify_uploads_failed_total",
		Help: "Total uploads that transitioned to FAILED, by reason.",
	}, []string{"reason"})

	VerificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "billverify_verification_duration_seconds",
		Help:    "Wall-clock duration of BillVerifier.Verify.",
		Buckets: prometheus.DefBuckets,
	})

	OCRDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "billverify_ocr_duration_seconds",
		Help:    "Wall-clock duration of the OCR collaborator call.",
		Buckets: prometheus.DefBuckets,
	})

	LLMArbiterCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billverify_llm_arbiter_calls_total",
		Help: "Total LLM arbiter model calls, by model id.",
	}, []string{"model"})

	LLMArbiterErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billverify_llm_arbiter_errors_total",
		Help: "Total LLM arbiter call failures, by model id and error type.",
	}, []string{"model", "error_type"})

	ItemsClassifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billverify_items_classified_total",
		Help: "Total bill line items classified, by terminal status.",
	}, []string{"status"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "billverify_queue_depth",
		Help: "Number of PENDING uploads awaiting a worker claim.",
	})

	CatalogReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billverify_catalog_reloads_total",
		Help: "Total successful rate catalog reloads.",
	})

	RetentionPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billverify_retention_purged_total",
		Help: "Total upload records permanently deleted by the retention worker.",
	})
)

func RecordUploadAccepted() {
	UploadsAcceptedTotal.Inc()
}

func RecordUploadFailed(reason string) {
	UploadsFailedTotal.WithLabelValues(reason).Inc()
}

func RecordVerificationDuration(d time.Duration) {
	VerificationDuration.Observe(d.Seconds())
}

func RecordOCRDuration(d time.Duration) {
	OCRDuration.Observe(d.Seconds())
}

func RecordLLMCall(modelID string) {
	LLMArbiterCallsTotal.WithLabelValues(modelID).Inc()
}

func RecordLLMError(modelID, errorType string) {
	LLMArbiterErrorsTotal.WithLabelValues(modelID, errorType).Inc()
}

func RecordItemClassified(status string) {
	ItemsClassifiedTotal.WithLabelValues(status).Inc()
}

func SetQueueDepth(n int) {
	QueueDepth.Set(float64(n))
}

func RecordCatalogReload() {
	CatalogReloadsTotal.Inc()
}

func RecordRetentionPurged(n int) {
	RetentionPurgedTotal.Add(float64(n))
}
