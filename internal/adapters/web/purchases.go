package web

import (
	"net/http"

	"sales-backend/internal/app"
	"sales-backend/internal/core"
)

// listPurchases handles GET /api/purchases.
func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	status, supplierID, dateFrom, dateTo := parseDocumentFilter(r, "supplier_id")
	result, err := h.svc.ListPurchases(r.Context(), core.PurchaseFilter{
		Status:     status,
		SupplierID: supplierID,
		DateFrom:   dateFrom,
		DateTo:     dateTo,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// createPurchase handles POST /api/purchases.
func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var req app.DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.CreatePurchase(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, result)
}

// getPurchase handles GET /api/purchases/{ref}.
func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetPurchase(r.Context(), docRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// updatePurchase handles PUT /api/purchases/{ref}. Pending purchases only.
func (h *Handler) updatePurchase(w http.ResponseWriter, r *http.Request) {
	var req app.DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdatePurchase(r.Context(), docRef(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// deletePurchase handles DELETE /api/purchases/{ref}. Pending purchases only.
func (h *Handler) deletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePurchase(r.Context(), docRef(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// completePurchase handles POST /api/purchases/{ref}/complete.
func (h *Handler) completePurchase(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CompletePurchase(r.Context(), docRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// cancelPurchase handles POST /api/purchases/{ref}/cancel.
func (h *Handler) cancelPurchase(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CancelPurchase(r.Context(), docRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
