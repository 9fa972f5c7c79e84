package web

import (
	"net/http"
	"strconv"

	"sales-backend/internal/app"
	"sales-backend/internal/core"
)

// parseDocumentFilter reads the shared list-filter query parameters:
// status, date_from, date_to, and the given counterparty parameter.
func parseDocumentFilter(r *http.Request, counterpartyParam string) (status *core.DocumentStatus, counterpartyID *int, dateFrom, dateTo string) {
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		ds := core.DocumentStatus(s)
		status = &ds
	}
	if c := q.Get(counterpartyParam); c != "" {
		if id, err := strconv.Atoi(c); err == nil {
			counterpartyID = &id
		}
	}
	return status, counterpartyID, q.Get("date_from"), q.Get("date_to")
}

// listSales handles GET /api/sales.
func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	status, clientID, dateFrom, dateTo := parseDocumentFilter(r, "client_id")
	result, err := h.svc.ListSales(r.Context(), core.SaleFilter{
		Status:   status,
		ClientID: clientID,
		DateFrom: dateFrom,
		DateTo:   dateTo,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// createSale handles POST /api/sales.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req app.DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.CreateSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, result)
}

// getSale handles GET /api/sales/{ref}.
func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetSale(r.Context(), docRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// updateSale handles PUT /api/sales/{ref}. Pending sales only.
func (h *Handler) updateSale(w http.ResponseWriter, r *http.Request) {
	var req app.DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdateSale(r.Context(), docRef(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// deleteSale handles DELETE /api/sales/{ref}. Pending sales only.
func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSale(r.Context(), docRef(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// completeSale handles POST /api/sales/{ref}/complete.
func (h *Handler) completeSale(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CompleteSale(r.Context(), docRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// cancelSale handles POST /api/sales/{ref}/cancel.
func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CancelSale(r.Context(), docRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
