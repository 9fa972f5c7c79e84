package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PurchaseService manages the purchasing document lifecycle. It mirrors
// SaleService with the stock direction reversed: completion receives goods
// into stock, cancellation of a completed purchase takes them back out.
type PurchaseService interface {
	CreatePurchase(ctx context.Context, input PurchaseInput) (*Purchase, error)

	// UpdatePurchase rewrites the header and replaces all lines. Pending only.
	UpdatePurchase(ctx context.Context, purchaseID int, input PurchaseInput) (*Purchase, error)
	// ReplaceLines swaps the full line set, keeping the header. Pending only.
	ReplaceLines(ctx context.Context, purchaseID int, lines []PurchaseLineInput) (*Purchase, error)
	CompletePurchase(ctx context.Context, purchaseID int) (*Purchase, error)
	CancelPurchase(ctx context.Context, purchaseID int) (*Purchase, error)
	DeletePurchase(ctx context.Context, purchaseID int) error

	GetPurchase(ctx context.Context, purchaseID int) (*Purchase, error)
	GetPurchaseByCode(ctx context.Context, code string) (*Purchase, error)
	GetPurchases(ctx context.Context, filter PurchaseFilter) ([]Purchase, error)
}

type purchaseService struct {
	pool *pgxpool.Pool
}

func NewPurchaseService(pool *pgxpool.Pool) PurchaseService {
	return &purchaseService{pool: pool}
}

func validatePurchaseLines(lines []PurchaseLineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("purchase must have at least one line")
	}
	for i, l := range lines {
		if l.Quantity < 1 {
			return fmt.Errorf("line %d: quantity must be at least 1", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("line %d: unit price cannot be negative", i+1)
		}
		if l.DiscountPct.IsNegative() || l.DiscountPct.GreaterThan(hundred) {
			return fmt.Errorf("line %d: discount percentage must be between 0 and 100", i+1)
		}
	}
	return nil
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *purchaseService) CreatePurchase(ctx context.Context, input PurchaseInput) (*Purchase, error) {
	if err := validateDocumentInput(input.PaymentType, input.VoucherType, input.TaxPct, input.DiscountPct); err != nil {
		return nil, err
	}
	if err := validatePurchaseLines(input.Lines); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var supplierActive bool
	var creditTermDays int
	err = tx.QueryRow(ctx,
		"SELECT is_active, credit_term_days FROM suppliers WHERE id = $1",
		input.SupplierID,
	).Scan(&supplierActive, &creditTermDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "supplier", ID: input.SupplierID}
		}
		return nil, fmt.Errorf("failed to resolve supplier %d: %w", input.SupplierID, err)
	}
	if !supplierActive {
		return nil, fmt.Errorf("supplier %d is inactive", input.SupplierID)
	}

	code, err := nextCodeTx(ctx, tx, purchaseCodePrefix)
	if err != nil {
		return nil, err
	}

	purchaseDate := input.PurchaseDate
	if purchaseDate == "" {
		purchaseDate = time.Now().Format("2006-01-02")
	}
	dueDate := input.DueDate
	if dueDate == "" && input.PaymentType == PaymentCredit && creditTermDays > 0 {
		d, perr := time.Parse("2006-01-02", purchaseDate)
		if perr != nil {
			return nil, fmt.Errorf("invalid purchase date %q: %w", purchaseDate, perr)
		}
		dueDate = d.AddDate(0, 0, creditTermDays).Format("2006-01-02")
	}

	var purchaseID int
	err = tx.QueryRow(ctx, `
		INSERT INTO purchases (code, supplier_id, payment_type, voucher_type, voucher_number,
		                       purchase_date, due_date, tax_pct, discount_pct, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'Pending', $10)
		RETURNING id
	`, code, input.SupplierID, input.PaymentType, input.VoucherType, nullable(input.VoucherNumber),
		purchaseDate, nullable(dueDate), input.TaxPct, input.DiscountPct, input.Notes).Scan(&purchaseID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert purchase %s: %w", code, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("failed to insert purchase: %w", err)
	}

	if err := s.insertLinesTx(ctx, tx, purchaseID, input.Lines); err != nil {
		return nil, err
	}
	if err := recomputeTotalsTx(ctx, tx, purchaseTables, purchaseID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase creation: %w", err)
	}
	return s.GetPurchase(ctx, purchaseID)
}

func (s *purchaseService) UpdatePurchase(ctx context.Context, purchaseID int, input PurchaseInput) (*Purchase, error) {
	if err := validateDocumentInput(input.PaymentType, input.VoucherType, input.TaxPct, input.DiscountPct); err != nil {
		return nil, err
	}
	if err := validatePurchaseLines(input.Lines); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, status, err := lockPurchaseHeader(ctx, tx, purchaseID)
	if err != nil {
		return nil, err
	}
	if status != StatusPending {
		return nil, &InvalidOperationError{Op: "update", Code: code, Status: status}
	}

	var supplierActive bool
	err = tx.QueryRow(ctx, "SELECT is_active FROM suppliers WHERE id = $1", input.SupplierID).Scan(&supplierActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "supplier", ID: input.SupplierID}
		}
		return nil, fmt.Errorf("failed to resolve supplier %d: %w", input.SupplierID, err)
	}
	if !supplierActive {
		return nil, fmt.Errorf("supplier %d is inactive", input.SupplierID)
	}

	purchaseDate := input.PurchaseDate
	if purchaseDate == "" {
		purchaseDate = time.Now().Format("2006-01-02")
	}

	_, err = tx.Exec(ctx, `
		UPDATE purchases
		SET supplier_id = $1, payment_type = $2, voucher_type = $3, voucher_number = $4,
		    purchase_date = $5, due_date = $6, tax_pct = $7, discount_pct = $8, notes = $9,
		    updated_at = NOW()
		WHERE id = $10
	`, input.SupplierID, input.PaymentType, input.VoucherType, nullable(input.VoucherNumber),
		purchaseDate, nullable(input.DueDate), input.TaxPct, input.DiscountPct, input.Notes, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to update purchase %s: %w", code, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchase_lines WHERE purchase_id = $1", purchaseID); err != nil {
		return nil, fmt.Errorf("failed to clear lines of purchase %s: %w", code, err)
	}
	if err := s.insertLinesTx(ctx, tx, purchaseID, input.Lines); err != nil {
		return nil, err
	}
	if err := recomputeTotalsTx(ctx, tx, purchaseTables, purchaseID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase update: %w", err)
	}
	return s.GetPurchase(ctx, purchaseID)
}

func (s *purchaseService) ReplaceLines(ctx context.Context, purchaseID int, lines []PurchaseLineInput) (*Purchase, error) {
	if err := validatePurchaseLines(lines); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, status, err := lockPurchaseHeader(ctx, tx, purchaseID)
	if err != nil {
		return nil, err
	}
	if status != StatusPending {
		return nil, &InvalidOperationError{Op: "edit lines of", Code: code, Status: status}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchase_lines WHERE purchase_id = $1", purchaseID); err != nil {
		return nil, fmt.Errorf("failed to clear lines of purchase %s: %w", code, err)
	}
	if err := s.insertLinesTx(ctx, tx, purchaseID, lines); err != nil {
		return nil, err
	}
	if err := recomputeTotalsTx(ctx, tx, purchaseTables, purchaseID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit line replacement: %w", err)
	}
	return s.GetPurchase(ctx, purchaseID)
}

// CompletePurchase transitions Pending → Completed: goods are received into
// stock, each product's purchase price is refreshed to the line cost, credit
// purchases draw on the supplier's credit, and the supplier's running totals
// are stamped.
func (s *purchaseService) CompletePurchase(ctx context.Context, purchaseID int) (*Purchase, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var h docHeader
	err = tx.QueryRow(ctx, `
		SELECT code, supplier_id, payment_type, status, purchase_date::text, total
		FROM purchases WHERE id = $1 FOR UPDATE
	`, purchaseID).Scan(&h.code, &h.counterpartyID, &h.paymentType, &h.status, &h.docDate, &h.total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "purchase", ID: purchaseID}
		}
		return nil, fmt.Errorf("failed to fetch purchase %d: %w", purchaseID, err)
	}
	if h.status != StatusPending {
		return nil, &InvalidStateTransitionError{Code: h.code, Status: h.status, Action: "completed"}
	}

	lines, err := fetchCostLinesTx(ctx, tx, purchaseID)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock + $1, purchase_price = $2, updated_at = NOW()
			WHERE id = $3
		`, l.quantity, l.unitPrice, l.productID)
		if err != nil {
			return nil, fmt.Errorf("failed to receive stock for product %d: %w", l.productID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, &NotFoundError{Entity: "product", ID: l.productID}
		}
	}

	if h.paymentType == PaymentCredit {
		if err := drawCreditTx(ctx, tx, supplierTable, h.counterpartyID, h.total); err != nil {
			return nil, err
		}
	}
	if err := recordTransactionTx(ctx, tx, supplierTable, h.counterpartyID, h.total, h.docDate); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE purchases SET status = 'Completed', updated_at = NOW() WHERE id = $1",
		purchaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to complete purchase %s: %w", h.code, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase completion: %w", err)
	}
	return s.GetPurchase(ctx, purchaseID)
}

// CancelPurchase transitions to Cancelled from either live state. Cancelling a
// completed purchase takes the received goods back out of stock with no floor
// check (the reversal must always succeed, even if some units were since sold)
// and releases any credit drawn. Running totals are left untouched.
func (s *purchaseService) CancelPurchase(ctx context.Context, purchaseID int) (*Purchase, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var h docHeader
	err = tx.QueryRow(ctx, `
		SELECT code, supplier_id, payment_type, status, purchase_date::text, total
		FROM purchases WHERE id = $1 FOR UPDATE
	`, purchaseID).Scan(&h.code, &h.counterpartyID, &h.paymentType, &h.status, &h.docDate, &h.total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "purchase", ID: purchaseID}
		}
		return nil, fmt.Errorf("failed to fetch purchase %d: %w", purchaseID, err)
	}
	if h.status == StatusCancelled {
		return nil, &AlreadyCancelledError{Code: h.code}
	}

	if h.status == StatusCompleted {
		lines, err := fetchStockLinesTx(ctx, tx, purchaseTables, purchaseID)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			_, err = tx.Exec(ctx,
				"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2",
				l.quantity, l.productID,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to reverse stock for product %d: %w", l.productID, err)
			}
		}
		if h.paymentType == PaymentCredit {
			if err := releaseCreditTx(ctx, tx, supplierTable, h.counterpartyID, h.total); err != nil {
				return nil, err
			}
		}
	}

	_, err = tx.Exec(ctx,
		"UPDATE purchases SET status = 'Cancelled', updated_at = NOW() WHERE id = $1",
		purchaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel purchase %s: %w", h.code, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase cancellation: %w", err)
	}
	return s.GetPurchase(ctx, purchaseID)
}

func (s *purchaseService) DeletePurchase(ctx context.Context, purchaseID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, status, err := lockPurchaseHeader(ctx, tx, purchaseID)
	if err != nil {
		return err
	}
	if status != StatusPending {
		return &InvalidOperationError{Op: "delete", Code: code, Status: status}
	}

	// Lines go with the header via ON DELETE CASCADE.
	if _, err := tx.Exec(ctx, "DELETE FROM purchases WHERE id = $1", purchaseID); err != nil {
		return fmt.Errorf("failed to delete purchase %s: %w", code, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit purchase deletion: %w", err)
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const purchaseSelect = `
	SELECT pu.id, pu.code, pu.supplier_id, su.code, TRIM(p.first_name || ' ' || p.last_name),
	       pu.payment_type, pu.voucher_type, pu.voucher_number, pu.purchase_date::text, pu.due_date::text,
	       pu.subtotal, pu.tax_pct, pu.tax_amount, pu.discount_pct, pu.discount_amount, pu.total,
	       pu.status, COALESCE(pu.notes, ''), pu.created_at, pu.updated_at
	FROM purchases pu
	JOIN suppliers su ON su.id = pu.supplier_id
	JOIN people p ON p.id = su.person_id
`

func scanPurchase(row pgx.Row, pu *Purchase) error {
	return row.Scan(
		&pu.ID, &pu.Code, &pu.SupplierID, &pu.SupplierCode, &pu.SupplierName,
		&pu.PaymentType, &pu.VoucherType, &pu.VoucherNumber, &pu.PurchaseDate, &pu.DueDate,
		&pu.Subtotal, &pu.TaxPct, &pu.TaxAmount, &pu.DiscountPct, &pu.DiscountAmount, &pu.Total,
		&pu.Status, &pu.Notes, &pu.CreatedAt, &pu.UpdatedAt,
	)
}

func (s *purchaseService) GetPurchase(ctx context.Context, purchaseID int) (*Purchase, error) {
	var pu Purchase
	err := scanPurchase(s.pool.QueryRow(ctx, purchaseSelect+" WHERE pu.id = $1", purchaseID), &pu)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "purchase", ID: purchaseID}
		}
		return nil, fmt.Errorf("failed to fetch purchase %d: %w", purchaseID, err)
	}

	lines, err := fetchPurchaseLinesQ(ctx, s.pool, purchaseID)
	if err != nil {
		return nil, err
	}
	pu.Lines = lines
	return &pu, nil
}

func (s *purchaseService) GetPurchaseByCode(ctx context.Context, code string) (*Purchase, error) {
	var purchaseID int
	err := s.pool.QueryRow(ctx, "SELECT id FROM purchases WHERE code = $1", code).Scan(&purchaseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "purchase", Ref: code}
		}
		return nil, fmt.Errorf("failed to lookup purchase by code: %w", err)
	}
	return s.GetPurchase(ctx, purchaseID)
}

func (s *purchaseService) GetPurchases(ctx context.Context, filter PurchaseFilter) ([]Purchase, error) {
	query := purchaseSelect + " WHERE 1=1"
	var args []any

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND pu.status = $%d", len(args))
	}
	if filter.SupplierID != nil {
		args = append(args, *filter.SupplierID)
		query += fmt.Sprintf(" AND pu.supplier_id = $%d", len(args))
	}
	if filter.DateFrom != "" {
		args = append(args, filter.DateFrom)
		query += fmt.Sprintf(" AND pu.purchase_date >= $%d", len(args))
	}
	if filter.DateTo != "" {
		args = append(args, filter.DateTo)
		query += fmt.Sprintf(" AND pu.purchase_date <= $%d", len(args))
	}
	query += " ORDER BY pu.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		var pu Purchase
		if err := scanPurchase(rows, &pu); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, pu)
	}
	return purchases, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func lockPurchaseHeader(ctx context.Context, tx pgx.Tx, purchaseID int) (string, DocumentStatus, error) {
	var code string
	var status DocumentStatus
	err := tx.QueryRow(ctx,
		"SELECT code, status FROM purchases WHERE id = $1 FOR UPDATE",
		purchaseID,
	).Scan(&code, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", &NotFoundError{Entity: "purchase", ID: purchaseID}
		}
		return "", "", fmt.Errorf("failed to fetch purchase %d: %w", purchaseID, err)
	}
	return code, status, nil
}

func (s *purchaseService) insertLinesTx(ctx context.Context, tx pgx.Tx, purchaseID int, lines []PurchaseLineInput) error {
	for i, input := range lines {
		var purchasePrice decimal.Decimal
		err := tx.QueryRow(ctx,
			"SELECT purchase_price FROM products WHERE id = $1 AND is_active = true",
			input.ProductID,
		).Scan(&purchasePrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("line %d: product %d not found or inactive", i+1, input.ProductID)
			}
			return fmt.Errorf("line %d: failed to resolve product: %w", i+1, err)
		}

		price := input.UnitPrice
		if price.IsZero() {
			price = purchasePrice
		}
		discount, subtotal := lineAmounts(input.Quantity, price, input.DiscountPct)

		_, err = tx.Exec(ctx, `
			INSERT INTO purchase_lines (purchase_id, product_id, quantity, unit_price, discount_pct, discount_amount, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, purchaseID, input.ProductID, input.Quantity, price, input.DiscountPct, discount, subtotal)
		if err != nil {
			return fmt.Errorf("failed to insert purchase line %d: %w", i+1, err)
		}
	}
	return nil
}

// costLine extends stockLine with the unit cost completion copies back to the
// product as its latest purchase price.
type costLine struct {
	productID int
	quantity  int
	unitPrice decimal.Decimal
}

func fetchCostLinesTx(ctx context.Context, tx pgx.Tx, purchaseID int) ([]costLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity, unit_price
		FROM purchase_lines
		WHERE purchase_id = $1
		ORDER BY product_id, id
	`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase lines for %d: %w", purchaseID, err)
	}
	defer rows.Close()

	var lines []costLine
	for rows.Next() {
		var l costLine
		if err := rows.Scan(&l.productID, &l.quantity, &l.unitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan cost line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func fetchPurchaseLinesQ(ctx context.Context, q pgxRowQuerier, purchaseID int) ([]PurchaseLine, error) {
	rows, err := q.Query(ctx, `
		SELECT pl.id, pl.purchase_id, pl.product_id, pr.code, pr.name,
		       pl.quantity, pl.unit_price, pl.discount_pct, pl.discount_amount, pl.subtotal
		FROM purchase_lines pl
		JOIN products pr ON pr.id = pl.product_id
		WHERE pl.purchase_id = $1
		ORDER BY pl.id
	`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase lines: %w", err)
	}
	defer rows.Close()

	var lines []PurchaseLine
	for rows.Next() {
		var l PurchaseLine
		if err := rows.Scan(
			&l.ID, &l.PurchaseID, &l.ProductID, &l.ProductCode, &l.ProductName,
			&l.Quantity, &l.UnitPrice, &l.DiscountPct, &l.DiscountAmount, &l.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}
