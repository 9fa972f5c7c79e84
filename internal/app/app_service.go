package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sales-backend/internal/core"
)

type appService struct {
	catalog   core.CatalogService
	parties   core.PartyService
	sales     core.SaleService
	purchases core.PurchaseService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	catalog core.CatalogService,
	parties core.PartyService,
	sales core.SaleService,
	purchases core.PurchaseService,
) ApplicationService {
	return &appService{
		catalog:   catalog,
		parties:   parties,
		sales:     sales,
		purchases: purchases,
	}
}

// resolveRef interprets ref as a numeric ID, or resolves it via byCode when it
// looks like a document code (e.g. VENT000001).
func resolveRef(ref string, byCode func(string) (int, error)) (int, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		return id, nil
	}
	code := strings.ToUpper(strings.TrimSpace(ref))
	if code == "" {
		return 0, fmt.Errorf("empty document reference")
	}
	return byCode(code)
}

func (s *appService) resolveSaleRef(ctx context.Context, ref string) (int, error) {
	return resolveRef(ref, func(code string) (int, error) {
		sale, err := s.sales.GetSaleByCode(ctx, code)
		if err != nil {
			return 0, err
		}
		return sale.ID, nil
	})
}

func (s *appService) resolvePurchaseRef(ctx context.Context, ref string) (int, error) {
	return resolveRef(ref, func(code string) (int, error) {
		purchase, err := s.purchases.GetPurchaseByCode(ctx, code)
		if err != nil {
			return 0, err
		}
		return purchase.ID, nil
	})
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *appService) ListCategories(ctx context.Context, activeOnly bool) (*CategoryListResult, error) {
	categories, err := s.catalog.GetCategories(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	return &CategoryListResult{Categories: categories}, nil
}

func (s *appService) CreateCategory(ctx context.Context, name, description string) (*core.Category, error) {
	return s.catalog.CreateCategory(ctx, name, description)
}

func (s *appService) UpdateCategory(ctx context.Context, categoryID int, name, description string, isActive bool) (*core.Category, error) {
	return s.catalog.UpdateCategory(ctx, categoryID, name, description, isActive)
}

func (s *appService) ListProducts(ctx context.Context, filter core.ProductFilter) (*ProductListResult, error) {
	products, err := s.catalog.GetProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) GetProduct(ctx context.Context, productID int) (*core.Product, error) {
	return s.catalog.GetProduct(ctx, productID)
}

func (s *appService) CreateProduct(ctx context.Context, req ProductRequest) (*core.Product, error) {
	return s.catalog.CreateProduct(ctx, core.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		MinStock:      req.MinStock,
		Unit:          req.Unit,
	})
}

func (s *appService) UpdateProduct(ctx context.Context, productID int, req ProductRequest) (*core.Product, error) {
	return s.catalog.UpdateProduct(ctx, productID, core.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		MinStock:      req.MinStock,
		Unit:          req.Unit,
	})
}

func (s *appService) DeactivateProduct(ctx context.Context, productID int) error {
	return s.catalog.DeactivateProduct(ctx, productID)
}

func (s *appService) ListLowStockProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.catalog.GetLowStockProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

// ── Counterparties ───────────────────────────────────────────────────────────

func (s *appService) ListClients(ctx context.Context, activeOnly bool) (*ClientListResult, error) {
	clients, err := s.parties.GetClients(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	return &ClientListResult{Clients: clients}, nil
}

func (s *appService) GetClient(ctx context.Context, clientID int) (*core.Client, error) {
	return s.parties.GetClient(ctx, clientID)
}

func (s *appService) CreateClient(ctx context.Context, req CounterpartyRequest) (*core.Client, error) {
	return s.parties.CreateClient(ctx, req.toCore())
}

func (s *appService) UpdateClient(ctx context.Context, clientID int, req CounterpartyRequest) (*core.Client, error) {
	return s.parties.UpdateClient(ctx, clientID, req.toCore())
}

func (s *appService) DeactivateClient(ctx context.Context, clientID int) error {
	return s.parties.DeactivateClient(ctx, clientID)
}

func (s *appService) ListSuppliers(ctx context.Context, activeOnly bool) (*SupplierListResult, error) {
	suppliers, err := s.parties.GetSuppliers(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	return &SupplierListResult{Suppliers: suppliers}, nil
}

func (s *appService) GetSupplier(ctx context.Context, supplierID int) (*core.Supplier, error) {
	return s.parties.GetSupplier(ctx, supplierID)
}

func (s *appService) CreateSupplier(ctx context.Context, req CounterpartyRequest) (*core.Supplier, error) {
	return s.parties.CreateSupplier(ctx, req.toCore())
}

func (s *appService) UpdateSupplier(ctx context.Context, supplierID int, req CounterpartyRequest) (*core.Supplier, error) {
	return s.parties.UpdateSupplier(ctx, supplierID, req.toCore())
}

func (s *appService) DeactivateSupplier(ctx context.Context, supplierID int) error {
	return s.parties.DeactivateSupplier(ctx, supplierID)
}

// ── Sales ────────────────────────────────────────────────────────────────────

func (s *appService) ListSales(ctx context.Context, filter core.SaleFilter) (*SaleListResult, error) {
	sales, err := s.sales.GetSales(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &SaleListResult{Sales: sales}, nil
}

func (s *appService) GetSale(ctx context.Context, ref string) (*SaleResult, error) {
	id, err := s.resolveSaleRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SaleResult{Sale: sale}, nil
}

func (s *appService) CreateSale(ctx context.Context, req DocumentRequest) (*SaleResult, error) {
	sale, err := s.sales.CreateSale(ctx, req.toSaleInput())
	if err != nil {
		return nil, err
	}
	return &SaleResult{Sale: sale}, nil
}

func (s *appService) UpdateSale(ctx context.Context, ref string, req DocumentRequest) (*SaleResult, error) {
	id, err := s.resolveSaleRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.UpdateSale(ctx, id, req.toSaleInput())
	if err != nil {
		return nil, err
	}
	return &SaleResult{Sale: sale}, nil
}

func (s *appService) CompleteSale(ctx context.Context, ref string) (*SaleResult, error) {
	id, err := s.resolveSaleRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.CompleteSale(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SaleResult{Sale: sale}, nil
}

func (s *appService) CancelSale(ctx context.Context, ref string) (*SaleResult, error) {
	id, err := s.resolveSaleRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.CancelSale(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SaleResult{Sale: sale}, nil
}

func (s *appService) DeleteSale(ctx context.Context, ref string) error {
	id, err := s.resolveSaleRef(ctx, ref)
	if err != nil {
		return err
	}
	return s.sales.DeleteSale(ctx, id)
}

// ── Purchases ────────────────────────────────────────────────────────────────

func (s *appService) ListPurchases(ctx context.Context, filter core.PurchaseFilter) (*PurchaseListResult, error) {
	purchases, err := s.purchases.GetPurchases(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PurchaseListResult{Purchases: purchases}, nil
}

func (s *appService) GetPurchase(ctx context.Context, ref string) (*PurchaseResult, error) {
	id, err := s.resolvePurchaseRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	purchase, err := s.purchases.GetPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{Purchase: purchase}, nil
}

func (s *appService) CreatePurchase(ctx context.Context, req DocumentRequest) (*PurchaseResult, error) {
	purchase, err := s.purchases.CreatePurchase(ctx, req.toPurchaseInput())
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{Purchase: purchase}, nil
}

func (s *appService) UpdatePurchase(ctx context.Context, ref string, req DocumentRequest) (*PurchaseResult, error) {
	id, err := s.resolvePurchaseRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	purchase, err := s.purchases.UpdatePurchase(ctx, id, req.toPurchaseInput())
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{Purchase: purchase}, nil
}

func (s *appService) CompletePurchase(ctx context.Context, ref string) (*PurchaseResult, error) {
	id, err := s.resolvePurchaseRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	purchase, err := s.purchases.CompletePurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{Purchase: purchase}, nil
}

func (s *appService) CancelPurchase(ctx context.Context, ref string) (*PurchaseResult, error) {
	id, err := s.resolvePurchaseRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	purchase, err := s.purchases.CancelPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{Purchase: purchase}, nil
}

func (s *appService) DeletePurchase(ctx context.Context, ref string) error {
	id, err := s.resolvePurchaseRef(ctx, ref)
	if err != nil {
		return err
	}
	return s.purchases.DeletePurchase(ctx, id)
}
