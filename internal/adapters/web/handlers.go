package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"sales-backend/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Route("/api", func(r chi.Router) {
		// 1 MB body limit to prevent unbounded request abuse.
		r.Use(RequestBodyLimit(1 << 20))

		// ── Catalog ──────────────────────────────────────────────────────
		r.Get("/categories", h.listCategories)
		r.Post("/categories", h.createCategory)
		r.Put("/categories/{id}", h.updateCategory)

		r.Get("/products", h.listProducts)
		r.Post("/products", h.createProduct)
		r.Get("/products/low-stock", h.listLowStockProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deactivateProduct)

		// ── Counterparties ───────────────────────────────────────────────
		r.Get("/clients", h.listClients)
		r.Post("/clients", h.createClient)
		r.Get("/clients/{id}", h.getClient)
		r.Put("/clients/{id}", h.updateClient)
		r.Delete("/clients/{id}", h.deactivateClient)

		r.Get("/suppliers", h.listSuppliers)
		r.Post("/suppliers", h.createSupplier)
		r.Get("/suppliers/{id}", h.getSupplier)
		r.Put("/suppliers/{id}", h.updateSupplier)
		r.Delete("/suppliers/{id}", h.deactivateSupplier)

		// ── Sales ────────────────────────────────────────────────────────
		r.Get("/sales", h.listSales)
		r.Post("/sales", h.createSale)
		r.Get("/sales/{ref}", h.getSale)
		r.Put("/sales/{ref}", h.updateSale)
		r.Delete("/sales/{ref}", h.deleteSale)
		r.Post("/sales/{ref}/complete", h.completeSale)
		r.Post("/sales/{ref}/cancel", h.cancelSale)

		// ── Purchases ────────────────────────────────────────────────────
		r.Get("/purchases", h.listPurchases)
		r.Post("/purchases", h.createPurchase)
		r.Get("/purchases/{ref}", h.getPurchase)
		r.Put("/purchases/{ref}", h.updatePurchase)
		r.Delete("/purchases/{ref}", h.deletePurchase)
		r.Post("/purchases/{ref}/complete", h.completePurchase)
		r.Post("/purchases/{ref}/cancel", h.cancelPurchase)
	})

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// urlID extracts and parses a numeric {id} URL parameter.
func urlID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// docRef extracts the {ref} URL parameter: a numeric ID or a document code.
func docRef(r *http.Request) string {
	return chi.URLParam(r, "ref")
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
