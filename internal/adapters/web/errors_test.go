package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"sales-backend/internal/core"

	"github.com/shopspring/decimal"
)

func TestWriteServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "missing entity by id",
			err:    &core.NotFoundError{Entity: "sale", ID: 42},
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			// A miss by document code must map the same as a miss by ID.
			name:   "missing entity by code",
			err:    &core.NotFoundError{Entity: "sale", Ref: "VENT000099"},
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "invalid state transition",
			err:    &core.InvalidStateTransitionError{Code: "VENT000001", Status: core.StatusCompleted, Action: "completed"},
			status: http.StatusConflict,
			code:   "INVALID_STATE_TRANSITION",
		},
		{
			name:   "already cancelled",
			err:    &core.AlreadyCancelledError{Code: "VENT000001"},
			status: http.StatusConflict,
			code:   "ALREADY_CANCELLED",
		},
		{
			name:   "edit on non-pending document",
			err:    &core.InvalidOperationError{Op: "update", Code: "COMP000001", Status: core.StatusCompleted},
			status: http.StatusConflict,
			code:   "INVALID_OPERATION",
		},
		{
			name:   "insufficient stock",
			err:    &core.InsufficientStockError{ProductName: "Widget", Available: 2, Requested: 5},
			status: http.StatusUnprocessableEntity,
			code:   "INSUFFICIENT_STOCK",
		},
		{
			name:   "credit limit exceeded",
			err:    &core.CreditLimitExceededError{Requested: decimal.NewFromInt(500), Available: decimal.NewFromInt(100)},
			status: http.StatusUnprocessableEntity,
			code:   "CREDIT_LIMIT_EXCEEDED",
		},
		{
			name:   "concurrency conflict",
			err:    fmt.Errorf("insert sale VENT000001: %w", core.ErrConcurrencyConflict),
			status: http.StatusConflict,
			code:   "CONCURRENCY_CONFLICT",
		},
		{
			name:   "anything else is invalid input",
			err:    errors.New("tax percentage must be between 0 and 100"),
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/sales/VENT000099", nil)

			writeServiceError(rec, req, tt.err)

			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if resp.Code != tt.code {
				t.Errorf("Expected error code %s, got %s", tt.code, resp.Code)
			}
			if resp.Error == "" {
				t.Error("Expected a non-empty error message")
			}
		})
	}
}
