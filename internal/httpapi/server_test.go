package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Aviraj-Roy/billverify/internal/config"
	apperrors "github.com/Aviraj-Roy/billverify/internal/errors"
	"github.com/Aviraj-Roy/billverify/pkg/model"
)

func TestHTTPAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "HTTPAPI Suite")
}

type fakeStore struct {
	records map[string]model.UploadRecord
}

func (s *fakeStore) CreateUploadRecord(_ context.Context, rec model.UploadRecord) (model.UploadRecord, error) {
	s.records[rec.UploadID] = rec
	return rec, nil
}
func (s *fakeStore) GetByIngestionRequestID(context.Context, string) (model.UploadRecord, error) {
	return model.UploadRecord{}, nil
}
func (s *fakeStore) GetUploadRecord(_ context.Context, uploadID string) (model.UploadRecord, error) {
	rec, ok := s.records[uploadID]
	if !ok {
		return model.UploadRecord{}, apperrors.NewNotFound("upload")
	}
	return rec, nil
}
func (s *fakeStore) EnqueueUploadJob(context.Context, string) error               { return nil }
func (s *fakeStore) ClaimNextPendingJob(context.Context) (model.UploadRecord, bool, error) {
	return model.UploadRecord{}, false, nil
}
func (s *fakeStore) ReconcileQueueState(context.Context) (int, error)             { return 0, nil }
func (s *fakeStore) RecomputePendingQueuePositions(context.Context) error         { return nil }
func (s *fakeStore) CompleteBill(context.Context, string, model.ExtractedBill) error { return nil }
func (s *fakeStore) MarkVerificationProcessing(context.Context, string) error     { return nil }
func (s *fakeStore) MarkVerificationComplete(context.Context, string, model.VerificationResult, string) error {
	return nil
}
func (s *fakeStore) MarkVerificationFailed(context.Context, string, string) error { return nil }
func (s *fakeStore) MarkFailed(context.Context, string, string) error             { return nil }
func (s *fakeStore) SaveLineItemEdits(context.Context, string, []model.LineItemEdit) error {
	return nil
}
func (s *fakeStore) SoftDelete(_ context.Context, uploadID, _ string) error {
	rec, ok := s.records[uploadID]
	if !ok {
		return notFoundErr{}
	}
	rec.IsDeleted = true
	s.records[uploadID] = rec
	return nil
}
func (s *fakeStore) Restore(_ context.Context, uploadID string) error {
	rec, ok := s.records[uploadID]
	if !ok {
		return notFoundErr{}
	}
	rec.IsDeleted = false
	s.records[uploadID] = rec
	return nil
}
func (s *fakeStore) HardDelete(_ context.Context, uploadID string) error {
	delete(s.records, uploadID)
	return nil
}
func (s *fakeStore) ListBills(_ context.Context, _ model.ListFilter) ([]model.UploadRecord, error) {
	out := make([]model.UploadRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

type fakeCatalog struct{ names []string }

func (c *fakeCatalog) HospitalNames() []string  { return c.names }
func (c *fakeCatalog) HospitalCount() int       { return len(c.names) }
func (c *fakeCatalog) Loaded() bool             { return true }
func (c *fakeCatalog) Reload(context.Context) error { return nil }

func testLogger() logr.Logger {
	return logr.Discard()
}

var _ = Describe("HTTP surface", func() {
	var (
		st  *fakeStore
		cat *fakeCatalog
		srv *Server
	)

	BeforeEach(func() {
		st = &fakeStore{records: map[string]model.UploadRecord{
			"u1": {UploadID: "u1", Status: model.StatusCompleted, VerificationStatus: model.VerificationCompleted},
		}}
		cat = &fakeCatalog{names: []string{"Apollo Hospital", "Fortis Hospital"}}
		srv = New(st, nil, nil, cat, config.DefaultHTTPConfig(), testLogger())
	})

	It("returns a status snapshot with a derived processing stage", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bills/u1/status", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var body statusResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Stage).To(Equal(model.StageDone))
	})

	It("returns a problem+json 404 for an unknown upload_id", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bills/missing/status", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/problem+json"))
	})

	It("lists hospitals from the catalog", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/hospitals", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["count"]).To(Equal(float64(2)))
	})

	It("soft-deletes and then restores a bill", func() {
		del := httptest.NewRequest(http.MethodDelete, "/api/v1/bills/u1", nil)
		delRec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(delRec, del)
		Expect(delRec.Code).To(Equal(http.StatusNoContent))
		Expect(st.records["u1"].IsDeleted).To(BeTrue())

		restore := httptest.NewRequest(http.MethodPost, "/api/v1/bills/u1/restore", nil)
		restoreRec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(restoreRec, restore)
		Expect(restoreRec.Code).To(Equal(http.StatusOK))
		Expect(st.records["u1"].IsDeleted).To(BeFalse())
	})
})
