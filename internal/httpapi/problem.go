package httpapi

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/Aviraj-Roy/billverify/internal/errors"
)

// problem is an RFC 7807 error body, grounded on the teacher's own
// gateway error-response shape (type/title/detail/status/instance over
// application/problem+json) rather than a bespoke error envelope.
type problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Status   int    `json:"status"`
	Instance string `json:"instance"`
}

func writeProblem(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	title := string(apperrors.ErrorTypeInternal)
	detail := err.Error()

	if appErr, ok := err.(*apperrors.AppError); ok {
		status = appErr.StatusCode
		title = string(appErr.Type)
		detail = appErr.Message
		if appErr.Details != "" {
			detail = appErr.Message + ": " + appErr.Details
		}
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{
		Type:     "billverify.io/errors/" + title,
		Title:    title,
		Detail:   detail,
		Status:   status,
		Instance: r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
