// Package httpapi exposes the caller-facing operations of spec.md §6
// over HTTP: a thin go-chi router translating requests into calls on
// the pipeline, store, verifier, and catalog collaborators, and
// rendering their results (or AppErrors) as JSON / RFC 7807 problems.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"

	"github.com/Aviraj-Roy/billverify/internal/config"
	apperrors "github.com/Aviraj-Roy/billverify/internal/errors"
	"github.com/Aviraj-Roy/billverify/pkg/metrics"
	"github.com/Aviraj-Roy/billverify/pkg/model"
	"github.com/Aviraj-Roy/billverify/pkg/pipeline"
	"github.com/Aviraj-Roy/billverify/pkg/render"
	"github.com/Aviraj-Roy/billverify/pkg/verifier"
)

// Store is the slice of pkg/store this surface depends on, beyond what
// the pipeline itself already needs.
type Store interface {
	pipeline.Store
	GetByIngestionRequestID(ctx context.Context, ingestionRequestID string) (model.UploadRecord, error)
	ListBills(ctx context.Context, filter model.ListFilter) ([]model.UploadRecord, error)
	SaveLineItemEdits(ctx context.Context, uploadID string, edits []model.LineItemEdit) error
	SoftDelete(ctx context.Context, uploadID, deletedBy string) error
	Restore(ctx context.Context, uploadID string) error
	HardDelete(ctx context.Context, uploadID string) error
}

// Catalog is the slice of pkg/catalog list_hospitals/reload_catalog needs.
type Catalog interface {
	HospitalNames() []string
	HospitalCount() int
	Loaded() bool
	Reload(ctx context.Context) error
}

// Server wires the HTTP surface to its collaborators.
type Server struct {
	router   chi.Router
	store    Store
	pipeline *pipeline.Pipeline
	verifier *verifier.Verifier
	catalog  Catalog
	validate *validator.Validate
	logger   logr.Logger
}

func New(st Store, pl *pipeline.Pipeline, v *verifier.Verifier, cat Catalog, cfg *config.HTTPConfig, logger logr.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultHTTPConfig()
	}
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	s := &Server{
		store:    st,
		pipeline: pl,
		verifier: v,
		catalog:  cat,
		validate: validator.New(),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/bills", s.submitUpload)
		r.Get("/bills", s.listBills)
		r.Get("/bills/{uploadID}/status", s.getStatus)
		r.Get("/bills/{uploadID}", s.getBillDetails)
		r.Patch("/bills/{uploadID}/line-items", s.patchLineItems)
		r.Post("/bills/{uploadID}/verify", s.verifyAgain)
		r.Delete("/bills/{uploadID}", s.deleteBill)
		r.Post("/bills/{uploadID}/restore", s.restoreBill)
		r.Get("/hospitals", s.listHospitals)
		r.Post("/hospitals/reload", s.reloadCatalog)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// submitUploadRequest validates submit_upload's non-file fields
// (spec.md §6: employee id exactly 8 decimal digits).
type submitUploadRequest struct {
	EmployeeID      string `validate:"required,len=8,numeric"`
	HospitalName    string `validate:"required"`
	ClientRequestID string
}

func (s *Server) submitUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeProblem(w, r, apperrors.NewInvalidInput("malformed multipart upload").WithDetailsf("%v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, r, apperrors.NewInvalidInput("missing file part"))
		return
	}
	defer file.Close()

	req := submitUploadRequest{
		EmployeeID:      r.FormValue("employee_id"),
		HospitalName:    r.FormValue("hospital_name"),
		ClientRequestID: r.FormValue("client_request_id"),
	}
	if err := s.validate.Struct(req); err != nil {
		writeProblem(w, r, apperrors.NewInvalidInput("invalid submit_upload input").WithDetailsf("%v", err))
		return
	}

	bytes, err := io.ReadAll(file)
	if err != nil {
		writeProblem(w, r, apperrors.NewInvalidInput("could not read uploaded file"))
		return
	}

	resp, err := s.pipeline.Submit(r.Context(), pipeline.SubmitRequest{
		Bytes:            bytes,
		EmployeeID:       req.EmployeeID,
		HospitalName:     req.HospitalName,
		ClientRequestID:  req.ClientRequestID,
		OriginalFilename: header.Filename,
	})
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

type statusResponse struct {
	UploadID      string                 `json:"upload_id"`
	Status        model.Status           `json:"status"`
	Verification  model.VerificationStatus `json:"verification_status"`
	Stage         model.ProcessingStage  `json:"processing_stage"`
	QueuePosition int                    `json:"queue_position"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")
	rec, err := s.store.GetUploadRecord(r.Context(), uploadID)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		UploadID:      rec.UploadID,
		Status:        rec.Status,
		Verification:  rec.VerificationStatus,
		Stage:         rec.ProcessingStage(),
		QueuePosition: rec.QueuePosition,
		ErrorMessage:  rec.ErrorMessage,
	})
}

func (s *Server) listBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ListFilter{
		Scope:    q.Get("scope"),
		Status:   model.Status(q.Get("status")),
		Hospital: q.Get("hospital"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = &t
		}
	}
	if v := q.Get("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Until = &t
		}
	}

	records, err := s.store.ListBills(r.Context(), filter)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) getBillDetails(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")
	rec, err := s.store.GetUploadRecord(r.Context(), uploadID)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	if rec.Status != model.StatusCompleted {
		writeProblem(w, r, apperrors.NewNotReady("bill"))
		return
	}

	var debugView interface{}
	if rec.VerificationResult != nil {
		debugView = render.RenderDebug(*rec.VerificationResult)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"upload_id":           rec.UploadID,
		"bill":                rec.Bill,
		"verification_result": debugView,
		"rendered_text":       rec.RenderedText,
		"line_item_edits":     rec.LineItemEdits,
	})
}

func (s *Server) patchLineItems(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")
	var edits []model.LineItemEdit
	if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
		writeProblem(w, r, apperrors.NewInvalidInput("malformed line item edits").WithDetailsf("%v", err))
		return
	}

	rec, err := s.store.GetUploadRecord(r.Context(), uploadID)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	if rec.Bill == nil {
		writeProblem(w, r, apperrors.NewNotReady("bill"))
		return
	}

	if err := s.store.SaveLineItemEdits(r.Context(), uploadID, edits); err != nil {
		writeProblem(w, r, err)
		return
	}

	recomputed := make(map[string][]model.ItemRow, len(rec.Bill.Items))
	for category, items := range rec.Bill.Items {
		recomputed[category] = model.ApplyLineItemEdits(category, items, edits)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"line_item_edits": edits, "items": recomputed})
}

func (s *Server) verifyAgain(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")
	rec, err := s.store.GetUploadRecord(r.Context(), uploadID)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	if rec.Bill == nil {
		writeProblem(w, r, apperrors.NewNotReady("bill"))
		return
	}

	if err := s.store.MarkVerificationProcessing(r.Context(), uploadID); err != nil {
		s.logger.Error(err, "httpapi: mark verification processing failed")
	}

	edited := make(map[string][]model.ItemRow, len(rec.Bill.Items))
	for category, items := range rec.Bill.Items {
		edited[category] = model.ApplyLineItemEdits(category, items, rec.LineItemEdits)
	}
	rec.Bill.Items = edited

	catOrder := make([]string, 0, len(rec.Bill.Items))
	for category := range rec.Bill.Items {
		catOrder = append(catOrder, category)
	}
	input := rec.Bill.ToBillInput(rec.HospitalName, catOrder)

	result, err := s.verifier.Verify(r.Context(), input)
	if err != nil {
		_ = s.store.MarkVerificationFailed(r.Context(), uploadID, err.Error())
		writeProblem(w, r, err)
		return
	}
	if err := s.store.MarkVerificationComplete(r.Context(), uploadID, *result, ""); err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) deleteBill(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")
	permanent := r.URL.Query().Get("permanent") == "true"

	var err error
	if permanent {
		err = s.store.HardDelete(r.Context(), uploadID)
	} else {
		err = s.store.SoftDelete(r.Context(), uploadID, requestedBy(r))
	}
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) restoreBill(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")
	if err := s.store.Restore(r.Context(), uploadID); err != nil {
		writeProblem(w, r, err)
		return
	}
	rec, err := s.store.GetUploadRecord(r.Context(), uploadID)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listHospitals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loaded":    s.catalog.Loaded(),
		"count":     s.catalog.HospitalCount(),
		"hospitals": s.catalog.HospitalNames(),
	})
}

func (s *Server) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Reload(r.Context()); err != nil {
		writeProblem(w, r, err)
		return
	}
	metrics.RecordCatalogReload()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     s.catalog.HospitalCount(),
		"hospitals": s.catalog.HospitalNames(),
	})
}

func requestedBy(r *http.Request) string {
	if v := r.URL.Query().Get("requested_by"); v != "" {
		return v
	}
	return "unknown"
}
