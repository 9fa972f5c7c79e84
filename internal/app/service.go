package app

import (
	"context"

	"sales-backend/internal/core"
)

// ApplicationService is the single interface all adapters call. It decouples
// presentation from business logic. Implementations must contain no display
// logic of any kind.
//
// Document references (ref) accept either a numeric ID or a document code such
// as VENT000001.
type ApplicationService interface {
	// ── Catalog ──────────────────────────────────────────────────────────

	ListCategories(ctx context.Context, activeOnly bool) (*CategoryListResult, error)
	CreateCategory(ctx context.Context, name, description string) (*core.Category, error)
	UpdateCategory(ctx context.Context, categoryID int, name, description string, isActive bool) (*core.Category, error)

	ListProducts(ctx context.Context, filter core.ProductFilter) (*ProductListResult, error)
	GetProduct(ctx context.Context, productID int) (*core.Product, error)
	CreateProduct(ctx context.Context, req ProductRequest) (*core.Product, error)
	UpdateProduct(ctx context.Context, productID int, req ProductRequest) (*core.Product, error)
	DeactivateProduct(ctx context.Context, productID int) error
	// ListLowStockProducts returns active products at or below their minimum.
	ListLowStockProducts(ctx context.Context) (*ProductListResult, error)

	// ── Counterparties ───────────────────────────────────────────────────

	ListClients(ctx context.Context, activeOnly bool) (*ClientListResult, error)
	GetClient(ctx context.Context, clientID int) (*core.Client, error)
	CreateClient(ctx context.Context, req CounterpartyRequest) (*core.Client, error)
	UpdateClient(ctx context.Context, clientID int, req CounterpartyRequest) (*core.Client, error)
	DeactivateClient(ctx context.Context, clientID int) error

	ListSuppliers(ctx context.Context, activeOnly bool) (*SupplierListResult, error)
	GetSupplier(ctx context.Context, supplierID int) (*core.Supplier, error)
	CreateSupplier(ctx context.Context, req CounterpartyRequest) (*core.Supplier, error)
	UpdateSupplier(ctx context.Context, supplierID int, req CounterpartyRequest) (*core.Supplier, error)
	DeactivateSupplier(ctx context.Context, supplierID int) error

	// ── Sales ────────────────────────────────────────────────────────────

	ListSales(ctx context.Context, filter core.SaleFilter) (*SaleListResult, error)
	GetSale(ctx context.Context, ref string) (*SaleResult, error)
	CreateSale(ctx context.Context, req DocumentRequest) (*SaleResult, error)
	UpdateSale(ctx context.Context, ref string, req DocumentRequest) (*SaleResult, error)
	// CompleteSale transitions Pending → Completed: stock out, credit drawn.
	CompleteSale(ctx context.Context, ref string) (*SaleResult, error)
	// CancelSale cancels the sale, reversing stock and credit if completed.
	CancelSale(ctx context.Context, ref string) (*SaleResult, error)
	DeleteSale(ctx context.Context, ref string) error

	// ── Purchases ────────────────────────────────────────────────────────

	ListPurchases(ctx context.Context, filter core.PurchaseFilter) (*PurchaseListResult, error)
	GetPurchase(ctx context.Context, ref string) (*PurchaseResult, error)
	CreatePurchase(ctx context.Context, req DocumentRequest) (*PurchaseResult, error)
	UpdatePurchase(ctx context.Context, ref string, req DocumentRequest) (*PurchaseResult, error)
	CompletePurchase(ctx context.Context, ref string) (*PurchaseResult, error)
	CancelPurchase(ctx context.Context, ref string) (*PurchaseResult, error)
	DeletePurchase(ctx context.Context, ref string) error
}
