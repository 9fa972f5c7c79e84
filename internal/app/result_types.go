package app

import "sales-backend/internal/core"

// CategoryListResult is returned by ListCategories.
type CategoryListResult struct {
	Categories []core.Category `json:"categories"`
}

// ProductListResult is returned by ListProducts and ListLowStockProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// ClientListResult is returned by ListClients.
type ClientListResult struct {
	Clients []core.Client `json:"clients"`
}

// SupplierListResult is returned by ListSuppliers.
type SupplierListResult struct {
	Suppliers []core.Supplier `json:"suppliers"`
}

// SaleResult is returned by sale lifecycle operations.
type SaleResult struct {
	Sale *core.Sale `json:"sale"`
}

// SaleListResult is returned by ListSales.
type SaleListResult struct {
	Sales []core.Sale `json:"sales"`
}

// PurchaseResult is returned by purchase lifecycle operations.
type PurchaseResult struct {
	Purchase *core.Purchase `json:"purchase"`
}

// PurchaseListResult is returned by ListPurchases.
type PurchaseListResult struct {
	Purchases []core.Purchase `json:"purchases"`
}
