package core_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"sales-backend/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE sale_lines, sales, purchase_lines, purchases,
		               clients, suppliers, people, products, categories, code_sequences
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}

	return pool
}

// salesFixture seeds a category, two stocked products, and a client with a
// credit line, and returns their IDs.
type salesFixture struct {
	categoryID int
	widgetID   int // stock 10, sale price 25.50
	gadgetID   int // stock 5,  sale price 100.00
	clientID   int // credit limit 500.00, term 30 days
}

func seedSalesFixture(t *testing.T, pool *pgxpool.Pool) salesFixture {
	t.Helper()
	ctx := context.Background()

	var f salesFixture
	err := pool.QueryRow(ctx,
		"INSERT INTO categories (name) VALUES ('General') RETURNING id",
	).Scan(&f.categoryID)
	if err != nil {
		t.Fatalf("Failed to seed category: %v", err)
	}

	err = pool.QueryRow(ctx, `
		INSERT INTO products (code, name, category_id, purchase_price, sale_price, stock, min_stock)
		VALUES ('PRD900001', 'Widget', $1, 18.00, 25.50, 10, 2)
		RETURNING id
	`, f.categoryID).Scan(&f.widgetID)
	if err != nil {
		t.Fatalf("Failed to seed widget: %v", err)
	}
	err = pool.QueryRow(ctx, `
		INSERT INTO products (code, name, category_id, purchase_price, sale_price, stock, min_stock)
		VALUES ('PRD900002', 'Gadget', $1, 70.00, 100.00, 5, 1)
		RETURNING id
	`, f.categoryID).Scan(&f.gadgetID)
	if err != nil {
		t.Fatalf("Failed to seed gadget: %v", err)
	}

	var personID int
	err = pool.QueryRow(ctx, `
		INSERT INTO people (document_number, first_name, last_name)
		VALUES ('11111111', 'Ana', 'Torres')
		RETURNING id
	`).Scan(&personID)
	if err != nil {
		t.Fatalf("Failed to seed person: %v", err)
	}
	err = pool.QueryRow(ctx, `
		INSERT INTO clients (person_id, code, credit_limit, credit_term_days)
		VALUES ($1, 'CLI900001', 500.00, 30)
		RETURNING id
	`, personID).Scan(&f.clientID)
	if err != nil {
		t.Fatalf("Failed to seed client: %v", err)
	}

	return f
}

func productStock(t *testing.T, pool *pgxpool.Pool, productID int) int {
	t.Helper()
	var stock int
	err := pool.QueryRow(context.Background(),
		"SELECT stock FROM products WHERE id = $1", productID,
	).Scan(&stock)
	if err != nil {
		t.Fatalf("Failed to read stock for product %d: %v", productID, err)
	}
	return stock
}

func clientCredit(t *testing.T, pool *pgxpool.Pool, clientID int) (used, totalSales decimal.Decimal) {
	t.Helper()
	err := pool.QueryRow(context.Background(),
		"SELECT credit_used, total_sales FROM clients WHERE id = $1", clientID,
	).Scan(&used, &totalSales)
	if err != nil {
		t.Fatalf("Failed to read credit for client %d: %v", clientID, err)
	}
	return used, totalSales
}

func TestSaleService_CreateComputesTotals(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewSaleService(pool)
	ctx := context.Background()

	// 2 × 25.50 with 10% line discount = 51.00 − 5.10 = 45.90, plus one gadget
	// at catalog price: line subtotal 145.90. Header: 5% discount, 18% tax.
	sale, err := svc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCash,
		VoucherType: core.VoucherTicket,
		SaleDate:    "2026-08-01",
		TaxPct:      decimal.NewFromInt(18),
		DiscountPct: decimal.NewFromInt(5),
		Lines: []core.SaleLineInput{
			{ProductID: f.widgetID, Quantity: 2, UnitPrice: decimal.NewFromFloat(25.50), DiscountPct: decimal.NewFromInt(10)},
			{ProductID: f.gadgetID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	if sale.Status != core.StatusPending {
		t.Errorf("Expected Pending, got %s", sale.Status)
	}
	if sale.Code != "VENT000001" {
		t.Errorf("Expected code VENT000001, got %s", sale.Code)
	}
	if len(sale.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(sale.Lines))
	}
	if !sale.Lines[0].DiscountAmount.Equal(decimal.NewFromFloat(5.10)) {
		t.Errorf("Expected line discount 5.10, got %s", sale.Lines[0].DiscountAmount)
	}
	if !sale.Lines[0].Subtotal.Equal(decimal.NewFromFloat(45.90)) {
		t.Errorf("Expected line subtotal 45.90, got %s", sale.Lines[0].Subtotal)
	}
	// Gadget line falls back to the catalog sale price.
	if !sale.Lines[1].UnitPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected catalog price 100.00, got %s", sale.Lines[1].UnitPrice)
	}

	// Header: subtotal 145.90, discount 7.30 (rounded), taxable 138.60,
	// tax 24.95 (138.595... rounded), total 163.55.
	if !sale.Subtotal.Equal(decimal.NewFromFloat(145.90)) {
		t.Errorf("Expected subtotal 145.90, got %s", sale.Subtotal)
	}
	if !sale.DiscountAmount.Equal(decimal.NewFromFloat(7.30)) {
		t.Errorf("Expected discount 7.30, got %s", sale.DiscountAmount)
	}
	if !sale.TaxAmount.Equal(decimal.NewFromFloat(24.95)) {
		t.Errorf("Expected tax 24.95, got %s", sale.TaxAmount)
	}
	if !sale.Total.Equal(decimal.NewFromFloat(163.55)) {
		t.Errorf("Expected total 163.55, got %s", sale.Total)
	}

	// Creation must not touch stock.
	if got := productStock(t, pool, f.widgetID); got != 10 {
		t.Errorf("Stock must not move on creation: expected 10, got %d", got)
	}
}

func TestSaleService_CompleteMovesStockAndCredit(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewSaleService(pool)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCredit,
		VoucherType: core.VoucherInvoice,
		SaleDate:    "2026-08-02",
		Lines: []core.SaleLineInput{
			{ProductID: f.widgetID, Quantity: 4},
			{ProductID: f.gadgetID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	// Credit sale with a 30-day term defaults the due date.
	if sale.DueDate == nil || *sale.DueDate != "2026-09-01" {
		t.Errorf("Expected due date 2026-09-01, got %v", sale.DueDate)
	}

	sale, err = svc.CompleteSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("CompleteSale failed: %v", err)
	}
	if sale.Status != core.StatusCompleted {
		t.Errorf("Expected Completed, got %s", sale.Status)
	}

	if got := productStock(t, pool, f.widgetID); got != 6 {
		t.Errorf("Expected widget stock 6, got %d", got)
	}
	if got := productStock(t, pool, f.gadgetID); got != 3 {
		t.Errorf("Expected gadget stock 3, got %d", got)
	}

	// 4 × 25.50 + 2 × 100.00 = 302.00 drawn on credit and added to history.
	used, totalSales := clientCredit(t, pool, f.clientID)
	if !used.Equal(decimal.NewFromFloat(302.00)) {
		t.Errorf("Expected credit_used 302.00, got %s", used)
	}
	if !totalSales.Equal(decimal.NewFromFloat(302.00)) {
		t.Errorf("Expected total_sales 302.00, got %s", totalSales)
	}

	// Completing twice must fail and change nothing.
	if _, err := svc.CompleteSale(ctx, sale.ID); err == nil {
		t.Error("Expected error completing an already completed sale")
	} else {
		var transErr *core.InvalidStateTransitionError
		if !errors.As(err, &transErr) {
			t.Errorf("Expected InvalidStateTransitionError, got %v", err)
		}
	}
	if got := productStock(t, pool, f.widgetID); got != 6 {
		t.Errorf("Double completion moved stock: expected 6, got %d", got)
	}
}

func TestSaleService_CancelCompletedReversesEffects(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewSaleService(pool)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCredit,
		VoucherType: core.VoucherInvoice,
		SaleDate:    "2026-08-03",
		Lines: []core.SaleLineInput{
			{ProductID: f.widgetID, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	if sale, err = svc.CompleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("CompleteSale failed: %v", err)
	}

	sale, err = svc.CancelSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("CancelSale failed: %v", err)
	}
	if sale.Status != core.StatusCancelled {
		t.Errorf("Expected Cancelled, got %s", sale.Status)
	}

	if got := productStock(t, pool, f.widgetID); got != 10 {
		t.Errorf("Expected stock restored to 10, got %d", got)
	}

	// Credit is released, but the historical total stays.
	used, totalSales := clientCredit(t, pool, f.clientID)
	if !used.IsZero() {
		t.Errorf("Expected credit_used 0 after cancellation, got %s", used)
	}
	if !totalSales.Equal(decimal.NewFromFloat(76.50)) {
		t.Errorf("Running total must survive cancellation: expected 76.50, got %s", totalSales)
	}

	// Cancelling twice reports the dedicated error.
	if _, err := svc.CancelSale(ctx, sale.ID); err == nil {
		t.Error("Expected error cancelling an already cancelled sale")
	} else {
		var cancelledErr *core.AlreadyCancelledError
		if !errors.As(err, &cancelledErr) {
			t.Errorf("Expected AlreadyCancelledError, got %v", err)
		}
	}
}

func TestSaleService_CancelPendingSkipsReversal(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewSaleService(pool)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCash,
		VoucherType: core.VoucherTicket,
		Lines:       []core.SaleLineInput{{ProductID: f.widgetID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	if _, err := svc.CancelSale(ctx, sale.ID); err != nil {
		t.Fatalf("CancelSale failed: %v", err)
	}
	if got := productStock(t, pool, f.widgetID); got != 10 {
		t.Errorf("Cancelling a pending sale must not move stock: expected 10, got %d", got)
	}
	used, _ := clientCredit(t, pool, f.clientID)
	if !used.IsZero() {
		t.Errorf("Cancelling a pending sale must not touch credit, got %s", used)
	}
}

func TestSaleService_InsufficientStockRollsBackEverything(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewSaleService(pool)
	ctx := context.Background()

	// Widget has 10 in stock, gadget only 5. The gadget line must fail the
	// whole completion and roll back the widget deduction.
	sale, err := svc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCredit,
		VoucherType: core.VoucherInvoice,
		Lines: []core.SaleLineInput{
			{ProductID: f.widgetID, Quantity: 2},
			{ProductID: f.gadgetID, Quantity: 6},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	_, err = svc.CompleteSale(ctx, sale.ID)
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductName != "Gadget" || stockErr.Available != 5 || stockErr.Requested != 6 {
		t.Errorf("Unexpected error detail: %+v", stockErr)
	}

	if got := productStock(t, pool, f.widgetID); got != 10 {
		t.Errorf("Partial deduction leaked: expected widget stock 10, got %d", got)
	}
	used, totalSales := clientCredit(t, pool, f.clientID)
	if !used.IsZero() || !totalSales.IsZero() {
		t.Errorf("Failed completion must not touch credit: used=%s total=%s", used, totalSales)
	}

	got, err := svc.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetSale failed: %v", err)
	}
	if got.Status != core.StatusPending {
		t.Errorf("Sale must stay Pending after failed completion, got %s", got.Status)
	}
}

func TestSaleService_CreditLimitBlocksCompletion(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewSaleService(pool)
	ctx := context.Background()

	// 5 gadgets × 100.00 = 500.00 fits the limit exactly; a second credit
	// sale of one widget must then be rejected.
	first, err := svc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCredit,
		VoucherType: core.VoucherInvoice,
		Lines:       []core.SaleLineInput{{ProductID: f.gadgetID, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	if _, err := svc.CompleteSale(ctx, first.ID); err != nil {
		t.Fatalf("CompleteSale at exact limit failed: %v", err)
	}

	second, err := svc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCredit,
		VoucherType: core.VoucherInvoice,
		Lines:       []core.SaleLineInput{{ProductID: f.widgetID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	_, err = svc.CompleteSale(ctx, second.ID)
	var creditErr *core.CreditLimitExceededError
	if !errors.As(err, &creditErr) {
		t.Fatalf("Expected CreditLimitExceededError, got %v", err)
	}
	if !creditErr.Available.IsZero() {
		t.Errorf("Expected available 0.00, got %s", creditErr.Available)
	}

	// The stock deduction of the failed completion must have rolled back.
	if got := productStock(t, pool, f.widgetID); got != 10 {
		t.Errorf("Failed credit draw leaked stock: expected 10, got %d", got)
	}
}

func TestSaleService_PendingOnlyEdits(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewSaleService(pool)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCash,
		VoucherType: core.VoucherTicket,
		Lines:       []core.SaleLineInput{{ProductID: f.widgetID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	// While Pending: replacing lines recomputes totals.
	sale, err = svc.ReplaceLines(ctx, sale.ID, []core.SaleLineInput{
		{ProductID: f.widgetID, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("ReplaceLines failed: %v", err)
	}
	if !sale.Total.Equal(decimal.NewFromFloat(51.00)) {
		t.Errorf("Expected recomputed total 51.00, got %s", sale.Total)
	}

	if _, err := svc.CompleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("CompleteSale failed: %v", err)
	}

	// After completion every edit path is rejected.
	var opErr *core.InvalidOperationError
	if _, err := svc.ReplaceLines(ctx, sale.ID, []core.SaleLineInput{{ProductID: f.widgetID, Quantity: 1}}); !errors.As(err, &opErr) {
		t.Errorf("Expected InvalidOperationError from ReplaceLines, got %v", err)
	}
	if _, err := svc.UpdateSale(ctx, sale.ID, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCash,
		VoucherType: core.VoucherTicket,
		Lines:       []core.SaleLineInput{{ProductID: f.widgetID, Quantity: 1}},
	}); !errors.As(err, &opErr) {
		t.Errorf("Expected InvalidOperationError from UpdateSale, got %v", err)
	}
	if err := svc.DeleteSale(ctx, sale.ID); !errors.As(err, &opErr) {
		t.Errorf("Expected InvalidOperationError from DeleteSale, got %v", err)
	}
}

func TestSaleService_DeletePendingRemovesLines(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewSaleService(pool)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, core.SaleInput{
		ClientID:    f.clientID,
		PaymentType: core.PaymentCash,
		VoucherType: core.VoucherTicket,
		Lines:       []core.SaleLineInput{{ProductID: f.widgetID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	if err := svc.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("DeleteSale failed: %v", err)
	}

	var notFound *core.NotFoundError
	if _, err := svc.GetSale(ctx, sale.ID); !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError after delete, got %v", err)
	}

	var lineCount int
	err = pool.QueryRow(ctx, "SELECT count(*) FROM sale_lines WHERE sale_id = $1", sale.ID).Scan(&lineCount)
	if err != nil {
		t.Fatalf("Failed to count lines: %v", err)
	}
	if lineCount != 0 {
		t.Errorf("Expected lines cascade-deleted, got %d", lineCount)
	}
}

func TestSaleService_Filters(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	f := seedSalesFixture(t, pool)

	svc := core.NewSaleService(pool)
	ctx := context.Background()

	for _, date := range []string{"2026-08-01", "2026-08-15"} {
		_, err := svc.CreateSale(ctx, core.SaleInput{
			ClientID:    f.clientID,
			PaymentType: core.PaymentCash,
			VoucherType: core.VoucherTicket,
			SaleDate:    date,
			Lines:       []core.SaleLineInput{{ProductID: f.widgetID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("CreateSale failed: %v", err)
		}
	}

	status := core.StatusPending
	sales, err := svc.GetSales(ctx, core.SaleFilter{Status: &status})
	if err != nil {
		t.Fatalf("GetSales failed: %v", err)
	}
	if len(sales) != 2 {
		t.Errorf("Expected 2 pending sales, got %d", len(sales))
	}

	sales, err = svc.GetSales(ctx, core.SaleFilter{DateFrom: "2026-08-10"})
	if err != nil {
		t.Fatalf("GetSales with date filter failed: %v", err)
	}
	if len(sales) != 1 || sales[0].SaleDate != "2026-08-15" {
		t.Errorf("Expected only the later sale, got %d results", len(sales))
	}
}

func TestSaleService_LookupByUnknownCode(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewSaleService(pool)

	_, err := svc.GetSaleByCode(context.Background(), "VENT999999")
	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError for unknown code, got %v", err)
	}
	if nf.Ref != "VENT999999" {
		t.Errorf("Expected error to carry the code, got %q", nf.Ref)
	}
}
