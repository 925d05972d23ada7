package web

import (
	"encoding/json"
	"net/http"

	"profitscope/internal/engine"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeReportError maps contract violations from the reporting engine to
// HTTP 400; everything else is a 500.
func writeReportError(w http.ResponseWriter, r *http.Request, err error) {
	if engine.IsBadInput(err) {
		writeError(w, r, err.Error(), "BAD_INPUT", http.StatusBadRequest)
		return
	}
	writeError(w, r, "failed to build report", "INTERNAL_ERROR", http.StatusInternalServerError)
}
