package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ComplyCloud/brane/core/fault"
	"github.com/ComplyCloud/brane/core/schema"
)

// ErrorResponseBody is the JSON error envelope.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []schema.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status of its fault kind.
func writeError(w http.ResponseWriter, err error) {
	detail := ErrorDetail{Code: "Error", Message: err.Error()}
	if kind, ok := fault.KindOf(err); ok {
		detail.Code = kind.String()
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		detail.Fields = verr.Errors
	}
	writeJSON(w, fault.StatusCode(err), ErrorResponseBody{Error: detail})
}

func errNoRoute(r *http.Request) error {
	return fault.NotFound("no route for %s %s", r.Method, r.URL.Path)
}
