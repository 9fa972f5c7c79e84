package core_test

import (
	"context"
	"errors"
	"testing"

	"sales-backend/internal/core"

	"github.com/shopspring/decimal"
)

func TestCatalogService_ProductLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCatalogService(pool)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Tools", "hand tools")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if _, err := svc.CreateCategory(ctx, "Tools", ""); err == nil {
		t.Error("Expected error on duplicate category name")
	}

	product, err := svc.CreateProduct(ctx, core.ProductInput{
		Name:          "Hammer",
		CategoryID:    category.ID,
		PurchasePrice: decimal.NewFromFloat(8.00),
		SalePrice:     decimal.NewFromFloat(12.50),
		MinStock:      3,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if product.Code != "PRD000001" {
		t.Errorf("Expected PRD000001, got %s", product.Code)
	}
	if product.Stock != 0 {
		t.Errorf("New products start with zero stock, got %d", product.Stock)
	}
	if product.Unit != "UND" {
		t.Errorf("Expected default unit UND, got %s", product.Unit)
	}
	if product.CategoryName != "Tools" {
		t.Errorf("Expected joined category name, got %q", product.CategoryName)
	}

	updated, err := svc.UpdateProduct(ctx, product.ID, core.ProductInput{
		Name:       "Claw Hammer",
		CategoryID: category.ID,
		SalePrice:  decimal.NewFromFloat(13.00),
		MinStock:   5,
	})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if updated.Name != "Claw Hammer" {
		t.Errorf("Expected renamed product, got %q", updated.Name)
	}

	if err := svc.DeactivateProduct(ctx, product.ID); err != nil {
		t.Fatalf("DeactivateProduct failed: %v", err)
	}
	active, err := svc.GetProducts(ctx, core.ProductFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("GetProducts failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected no active products, got %d", len(active))
	}

	var notFound *core.NotFoundError
	if _, err := svc.GetProduct(ctx, 99999); !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestCatalogService_LowStockList(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	catalogSvc := core.NewCatalogService(pool)
	saleSvc := core.NewSaleService(pool)
	ctx := context.Background()

	low, err := catalogSvc.GetLowStockProducts(ctx)
	if err != nil {
		t.Fatalf("GetLowStockProducts failed: %v", err)
	}
	if len(low) != 0 {
		t.Fatalf("Expected no low-stock products initially, got %d", len(low))
	}

	// Sell the widget down to its minimum (stock 10, min 2 → sell 8).
	sale, err := saleSvc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCash,
		VoucherType: core.VoucherTicket,
		Lines:       []core.SaleLineInput{{ProductID: f.widgetID, Quantity: 8}},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	if _, err := saleSvc.CompleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("CompleteSale failed: %v", err)
	}

	low, err = catalogSvc.GetLowStockProducts(ctx)
	if err != nil {
		t.Fatalf("GetLowStockProducts failed: %v", err)
	}
	if len(low) != 1 || low[0].ID != f.widgetID {
		t.Fatalf("Expected only the widget in the low-stock list, got %d entries", len(low))
	}
	if !low[0].LowOnStock() {
		t.Error("Listed product must report LowOnStock")
	}
}

func TestCatalogService_Search(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewCatalogService(pool)
	ctx := context.Background()

	products, err := svc.GetProducts(ctx, core.ProductFilter{Search: "wid"})
	if err != nil {
		t.Fatalf("GetProducts failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != f.widgetID {
		t.Fatalf("Expected the widget by name search, got %d entries", len(products))
	}

	products, err = svc.GetProducts(ctx, core.ProductFilter{Search: "PRD9000"})
	if err != nil {
		t.Fatalf("GetProducts failed: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("Expected both seeded products by code search, got %d", len(products))
	}
}
