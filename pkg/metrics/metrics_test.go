package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordUploadAccepted(t *testing.T) {
	before := testutil.ToFloat64(UploadsAcceptedTotal)
	RecordUploadAccepted()
	assert.Equal(t, before+1, testutil.ToFloat64(UploadsAcceptedTotal))
}

func TestRecordUploadFailed(t *testing.T) {
	before := testutil.ToFloat64(UploadsFailedTotal.WithLabelValues("ocr_error"))
	RecordUploadFailed("ocr_error")
	assert.Equal(t, before+1, testutil.ToFloat64(UploadsFailedTotal.WithLabelValues("ocr_error")))
}

func TestRecordItemClassified(t *testing.T) {
	before := testutil.ToFloat64(ItemsClassifiedTotal.WithLabelValues("GREEN"))
	RecordItemClassified("GREEN")
	assert.Equal(t, before+1, testutil.ToFloat64(ItemsClassifiedTotal.WithLabelValues("GREEN")))
}

func TestRecordLLMCallAndError(t *testing.T) {
	beforeCalls := testutil.ToFloat64(LLMArbiterCallsTotal.WithLabelValues("primary"))
	beforeErrors := testutil.ToFloat64(LLMArbiterErrorsTotal.WithLabelValues("primary", "timeout"))

	RecordLLMCall("primary")
	RecordLLMError("primary", "timeout")

	assert.Equal(t, beforeCalls+1, testutil.ToFloat64(LLMArbiterCallsTotal.WithLabelValues("primary")))
	assert.Equal(t, beforeErrors+1, testutil.ToFloat64(LLMArbiterErrorsTotal.WithLabelValues("primary", "timeout")))
}

func TestSetQueueDepth(t *testing.T) {
	SetQueueDepth(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(QueueDepth))
	SetQueueDepth(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(QueueDepth))
}

func TestRecordVerificationDurationObservesHistogram(t *testing.T) {
	var before dto.Metric
	assert.NoError(t, VerificationDuration.Write(&before))
	beforeCount := before.GetHistogram().GetSampleCount()

	RecordVerificationDuration(250_000_000) // 0.25s in time.Duration units

	var after dto.Metric
	assert.NoError(t, VerificationDuration.Write(&after))
	assert.Equal(t, beforeCount+1, after.GetHistogram().GetSampleCount())
}

func TestRecordCatalogReload(t *testing.T) {
	before := testutil.ToFloat64(CatalogReloadsTotal)
	RecordCatalogReload()
	assert.Equal(t, before+1, testutil.ToFloat64(CatalogReloadsTotal))
}

func TestRecordRetentionPurged(t *testing.T) {
	before := testutil.ToFloat64(RetentionPurgedTotal)
	RecordRetentionPurged(3)
	assert.Equal(t, before+3, testutil.ToFloat64(RetentionPurgedTotal))
}
