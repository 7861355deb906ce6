package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/logging"
)

// Codes for failures raised by the HTTP layer itself.
const (
	codeRateLimited      = "RATE_LIMITED"
	codeRouteNotFound    = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func writeErrorBody(w http.ResponseWriter, status int, msg, code string, details map[string]any) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code, Details: details})
}

// writeError maps err to a response. Client errors keep their message and
// details; anything else is logged and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	sErr, ok := errors.As(err)
	if ok && sErr.Public() {
		writeErrorBody(w, sErr.Status, sErr.Message, string(sErr.Code), sErr.Details)
		return
	}

	code := string(errors.ErrInternal)
	if ok {
		code = string(sErr.Code)
	}
	logging.Ctx(r.Context()).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("code", code).
		Msg("request failed")
	writeErrorBody(w, http.StatusInternalServerError, errors.MsgInternal, code, nil)
}
