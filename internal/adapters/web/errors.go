package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"sales-backend/internal/core"
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

// writeBody encodes v after the caller has already set headers and status.
func writeBody(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses. State
// and concurrency violations are 409, stock and credit rejections 422, missing
// entities 404; everything else is treated as invalid input.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *core.NotFoundError
	var transition *core.InvalidStateTransitionError
	var cancelled *core.AlreadyCancelledError
	var invalidOp *core.InvalidOperationError
	var stock *core.InsufficientStockError
	var credit *core.CreditLimitExceededError

	switch {
	case errors.As(err, &notFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &transition):
		writeError(w, r, err.Error(), "INVALID_STATE_TRANSITION", http.StatusConflict)
	case errors.As(err, &cancelled):
		writeError(w, r, err.Error(), "ALREADY_CANCELLED", http.StatusConflict)
	case errors.As(err, &invalidOp):
		writeError(w, r, err.Error(), "INVALID_OPERATION", http.StatusConflict)
	case errors.As(err, &stock):
		writeError(w, r, err.Error(), "INSUFFICIENT_STOCK", http.StatusUnprocessableEntity)
	case errors.As(err, &credit):
		writeError(w, r, err.Error(), "CREDIT_LIMIT_EXCEEDED", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrConcurrencyConflict):
		writeError(w, r, err.Error(), "CONCURRENCY_CONFLICT", http.StatusConflict)
	default:
		writeError(w, r, err.Error(), "INVALID_INPUT", http.StatusBadRequest)
	}
}
