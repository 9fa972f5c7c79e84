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

// SaleService manages the sales document lifecycle. Documents are created
// Pending and stay freely editable; CompleteSale decrements stock and, for
// credit sales, draws on the client's credit line; CancelSale reverses those
// effects when the sale had been completed.
type SaleService interface {
	CreateSale(ctx context.Context, input SaleInput) (*Sale, error)

	// UpdateSale rewrites the header and replaces all lines. Pending only.
	UpdateSale(ctx context.Context, saleID int, input SaleInput) (*Sale, error)
	// ReplaceLines swaps the full line set, keeping the header. Pending only.
	ReplaceLines(ctx context.Context, saleID int, lines []SaleLineInput) (*Sale, error)
	CompleteSale(ctx context.Context, saleID int) (*Sale, error)
	CancelSale(ctx context.Context, saleID int) (*Sale, error)
	DeleteSale(ctx context.Context, saleID int) error

	GetSale(ctx context.Context, saleID int) (*Sale, error)
	GetSaleByCode(ctx context.Context, code string) (*Sale, error)
	GetSales(ctx context.Context, filter SaleFilter) ([]Sale, error)
}

type saleService struct {
	pool *pgxpool.Pool
}

func NewSaleService(pool *pgxpool.Pool) SaleService {
	return &saleService{pool: pool}
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// query helpers.
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func validateDocumentInput(payment PaymentType, voucher VoucherType, taxPct, discountPct decimal.Decimal) error {
	if !payment.valid() {
		return fmt.Errorf("invalid payment type %q", payment)
	}
	if !voucher.valid() {
		return fmt.Errorf("invalid voucher type %q", voucher)
	}
	if taxPct.IsNegative() || taxPct.GreaterThan(hundred) {
		return fmt.Errorf("tax percentage must be between 0 and 100")
	}
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
		return fmt.Errorf("discount percentage must be between 0 and 100")
	}
	return nil
}

func validateSaleLines(lines []SaleLineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("sale must have at least one line")
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

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *saleService) CreateSale(ctx context.Context, input SaleInput) (*Sale, error) {
	if err := validateDocumentInput(input.PaymentType, input.VoucherType, input.TaxPct, input.DiscountPct); err != nil {
		return nil, err
	}
	if err := validateSaleLines(input.Lines); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var clientActive bool
	var creditTermDays int
	err = tx.QueryRow(ctx,
		"SELECT is_active, credit_term_days FROM clients WHERE id = $1",
		input.ClientID,
	).Scan(&clientActive, &creditTermDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: input.ClientID}
		}
		return nil, fmt.Errorf("failed to resolve client %d: %w", input.ClientID, err)
	}
	if !clientActive {
		return nil, fmt.Errorf("client %d is inactive", input.ClientID)
	}

	code, err := nextCodeTx(ctx, tx, saleCodePrefix)
	if err != nil {
		return nil, err
	}

	saleDate := input.SaleDate
	if saleDate == "" {
		saleDate = time.Now().Format("2006-01-02")
	}
	dueDate := input.DueDate
	if dueDate == "" && input.PaymentType == PaymentCredit && creditTermDays > 0 {
		d, perr := time.Parse("2006-01-02", saleDate)
		if perr != nil {
			return nil, fmt.Errorf("invalid sale date %q: %w", saleDate, perr)
		}
		dueDate = d.AddDate(0, 0, creditTermDays).Format("2006-01-02")
	}

	var saleID int
	err = tx.QueryRow(ctx, `
		INSERT INTO sales (code, client_id, payment_type, voucher_type, voucher_number,
		                   sale_date, due_date, tax_pct, discount_pct, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'Pending', $10)
		RETURNING id
	`, code, input.ClientID, input.PaymentType, input.VoucherType, nullable(input.VoucherNumber),
		saleDate, nullable(dueDate), input.TaxPct, input.DiscountPct, input.Notes).Scan(&saleID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert sale %s: %w", code, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	if err := s.insertLinesTx(ctx, tx, saleID, input.Lines); err != nil {
		return nil, err
	}
	if err := recomputeTotalsTx(ctx, tx, saleTables, saleID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale creation: %w", err)
	}
	return s.GetSale(ctx, saleID)
}

func (s *saleService) UpdateSale(ctx context.Context, saleID int, input SaleInput) (*Sale, error) {
	if err := validateDocumentInput(input.PaymentType, input.VoucherType, input.TaxPct, input.DiscountPct); err != nil {
		return nil, err
	}
	if err := validateSaleLines(input.Lines); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, status, err := lockSaleHeader(ctx, tx, saleID)
	if err != nil {
		return nil, err
	}
	if status != StatusPending {
		return nil, &InvalidOperationError{Op: "update", Code: code, Status: status}
	}

	var clientActive bool
	err = tx.QueryRow(ctx, "SELECT is_active FROM clients WHERE id = $1", input.ClientID).Scan(&clientActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: input.ClientID}
		}
		return nil, fmt.Errorf("failed to resolve client %d: %w", input.ClientID, err)
	}
	if !clientActive {
		return nil, fmt.Errorf("client %d is inactive", input.ClientID)
	}

	saleDate := input.SaleDate
	if saleDate == "" {
		saleDate = time.Now().Format("2006-01-02")
	}

	_, err = tx.Exec(ctx, `
		UPDATE sales
		SET client_id = $1, payment_type = $2, voucher_type = $3, voucher_number = $4,
		    sale_date = $5, due_date = $6, tax_pct = $7, discount_pct = $8, notes = $9,
		    updated_at = NOW()
		WHERE id = $10
	`, input.ClientID, input.PaymentType, input.VoucherType, nullable(input.VoucherNumber),
		saleDate, nullable(input.DueDate), input.TaxPct, input.DiscountPct, input.Notes, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to update sale %s: %w", code, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM sale_lines WHERE sale_id = $1", saleID); err != nil {
		return nil, fmt.Errorf("failed to clear lines of sale %s: %w", code, err)
	}
	if err := s.insertLinesTx(ctx, tx, saleID, input.Lines); err != nil {
		return nil, err
	}
	if err := recomputeTotalsTx(ctx, tx, saleTables, saleID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale update: %w", err)
	}
	return s.GetSale(ctx, saleID)
}

func (s *saleService) ReplaceLines(ctx context.Context, saleID int, lines []SaleLineInput) (*Sale, error) {
	if err := validateSaleLines(lines); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, status, err := lockSaleHeader(ctx, tx, saleID)
	if err != nil {
		return nil, err
	}
	if status != StatusPending {
		return nil, &InvalidOperationError{Op: "edit lines of", Code: code, Status: status}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM sale_lines WHERE sale_id = $1", saleID); err != nil {
		return nil, fmt.Errorf("failed to clear lines of sale %s: %w", code, err)
	}
	if err := s.insertLinesTx(ctx, tx, saleID, lines); err != nil {
		return nil, err
	}
	if err := recomputeTotalsTx(ctx, tx, saleTables, saleID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit line replacement: %w", err)
	}
	return s.GetSale(ctx, saleID)
}

// CompleteSale transitions Pending → Completed: every line's product stock is
// decremented (failing the whole transaction if any would go negative), credit
// sales draw on the client's credit, and the client's running totals are
// stamped. All of it commits or rolls back as one unit.
func (s *saleService) CompleteSale(ctx context.Context, saleID int) (*Sale, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	h, err := lockSaleForTransition(ctx, tx, saleID)
	if err != nil {
		return nil, err
	}
	if h.status != StatusPending {
		return nil, &InvalidStateTransitionError{Code: h.code, Status: h.status, Action: "completed"}
	}

	lines, err := fetchStockLinesTx(ctx, tx, saleTables, saleID)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		var name string
		var stock int
		err = tx.QueryRow(ctx,
			"SELECT name, stock FROM products WHERE id = $1 FOR UPDATE",
			l.productID,
		).Scan(&name, &stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &NotFoundError{Entity: "product", ID: l.productID}
			}
			return nil, fmt.Errorf("failed to lock product %d: %w", l.productID, err)
		}
		if stock < l.quantity {
			return nil, &InsufficientStockError{ProductName: name, Available: stock, Requested: l.quantity}
		}
		_, err = tx.Exec(ctx,
			"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2",
			l.quantity, l.productID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to deduct stock for product %d: %w", l.productID, err)
		}
	}

	if h.paymentType == PaymentCredit {
		if err := drawCreditTx(ctx, tx, clientTable, h.counterpartyID, h.total); err != nil {
			return nil, err
		}
	}
	if err := recordTransactionTx(ctx, tx, clientTable, h.counterpartyID, h.total, h.docDate); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE sales SET status = 'Completed', updated_at = NOW() WHERE id = $1",
		saleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to complete sale %s: %w", h.code, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale completion: %w", err)
	}
	return s.GetSale(ctx, saleID)
}

// CancelSale transitions to Cancelled from either live state. Cancelling a
// completed sale restores stock and releases any credit drawn; the client's
// running totals are left untouched, they track history, not balance.
func (s *saleService) CancelSale(ctx context.Context, saleID int) (*Sale, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	h, err := lockSaleForTransition(ctx, tx, saleID)
	if err != nil {
		return nil, err
	}
	if h.status == StatusCancelled {
		return nil, &AlreadyCancelledError{Code: h.code}
	}

	if h.status == StatusCompleted {
		lines, err := fetchStockLinesTx(ctx, tx, saleTables, saleID)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			_, err = tx.Exec(ctx,
				"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2",
				l.quantity, l.productID,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to restore stock for product %d: %w", l.productID, err)
			}
		}
		if h.paymentType == PaymentCredit {
			if err := releaseCreditTx(ctx, tx, clientTable, h.counterpartyID, h.total); err != nil {
				return nil, err
			}
		}
	}

	_, err = tx.Exec(ctx,
		"UPDATE sales SET status = 'Cancelled', updated_at = NOW() WHERE id = $1",
		saleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel sale %s: %w", h.code, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale cancellation: %w", err)
	}
	return s.GetSale(ctx, saleID)
}

func (s *saleService) DeleteSale(ctx context.Context, saleID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, status, err := lockSaleHeader(ctx, tx, saleID)
	if err != nil {
		return err
	}
	if status != StatusPending {
		return &InvalidOperationError{Op: "delete", Code: code, Status: status}
	}

	// Lines go with the header via ON DELETE CASCADE.
	if _, err := tx.Exec(ctx, "DELETE FROM sales WHERE id = $1", saleID); err != nil {
		return fmt.Errorf("failed to delete sale %s: %w", code, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sale deletion: %w", err)
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const saleSelect = `
	SELECT s.id, s.code, s.client_id, c.code, TRIM(p.first_name || ' ' || p.last_name),
	       s.payment_type, s.voucher_type, s.voucher_number, s.sale_date::text, s.due_date::text,
	       s.subtotal, s.tax_pct, s.tax_amount, s.discount_pct, s.discount_amount, s.total,
	       s.status, COALESCE(s.notes, ''), s.created_at, s.updated_at
	FROM sales s
	JOIN clients c ON c.id = s.client_id
	JOIN people p ON p.id = c.person_id
`

func scanSale(row pgx.Row, sale *Sale) error {
	return row.Scan(
		&sale.ID, &sale.Code, &sale.ClientID, &sale.ClientCode, &sale.ClientName,
		&sale.PaymentType, &sale.VoucherType, &sale.VoucherNumber, &sale.SaleDate, &sale.DueDate,
		&sale.Subtotal, &sale.TaxPct, &sale.TaxAmount, &sale.DiscountPct, &sale.DiscountAmount, &sale.Total,
		&sale.Status, &sale.Notes, &sale.CreatedAt, &sale.UpdatedAt,
	)
}

func (s *saleService) GetSale(ctx context.Context, saleID int) (*Sale, error) {
	var sale Sale
	err := scanSale(s.pool.QueryRow(ctx, saleSelect+" WHERE s.id = $1", saleID), &sale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "sale", ID: saleID}
		}
		return nil, fmt.Errorf("failed to fetch sale %d: %w", saleID, err)
	}

	lines, err := fetchSaleLinesQ(ctx, s.pool, saleID)
	if err != nil {
		return nil, err
	}
	sale.Lines = lines
	return &sale, nil
}

func (s *saleService) GetSaleByCode(ctx context.Context, code string) (*Sale, error) {
	var saleID int
	err := s.pool.QueryRow(ctx, "SELECT id FROM sales WHERE code = $1", code).Scan(&saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "sale", Ref: code}
		}
		return nil, fmt.Errorf("failed to lookup sale by code: %w", err)
	}
	return s.GetSale(ctx, saleID)
}

func (s *saleService) GetSales(ctx context.Context, filter SaleFilter) ([]Sale, error) {
	query := saleSelect + " WHERE 1=1"
	var args []any

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND s.status = $%d", len(args))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		query += fmt.Sprintf(" AND s.client_id = $%d", len(args))
	}
	if filter.DateFrom != "" {
		args = append(args, filter.DateFrom)
		query += fmt.Sprintf(" AND s.sale_date >= $%d", len(args))
	}
	if filter.DateTo != "" {
		args = append(args, filter.DateTo)
		query += fmt.Sprintf(" AND s.sale_date <= $%d", len(args))
	}
	query += " ORDER BY s.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var sale Sale
		if err := scanSale(rows, &sale); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// docHeader is the slice of a document header a state transition needs, read
// under FOR UPDATE so concurrent transitions on the same document serialize.
type docHeader struct {
	code           string
	counterpartyID int
	paymentType    PaymentType
	status         DocumentStatus
	docDate        string
	total          decimal.Decimal
}

func lockSaleForTransition(ctx context.Context, tx pgx.Tx, saleID int) (docHeader, error) {
	var h docHeader
	err := tx.QueryRow(ctx, `
		SELECT code, client_id, payment_type, status, sale_date::text, total
		FROM sales WHERE id = $1 FOR UPDATE
	`, saleID).Scan(&h.code, &h.counterpartyID, &h.paymentType, &h.status, &h.docDate, &h.total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return h, &NotFoundError{Entity: "sale", ID: saleID}
		}
		return h, fmt.Errorf("failed to fetch sale %d: %w", saleID, err)
	}
	return h, nil
}

// lockSaleHeader is the lighter lock used by edit/delete paths.
func lockSaleHeader(ctx context.Context, tx pgx.Tx, saleID int) (string, DocumentStatus, error) {
	var code string
	var status DocumentStatus
	err := tx.QueryRow(ctx,
		"SELECT code, status FROM sales WHERE id = $1 FOR UPDATE",
		saleID,
	).Scan(&code, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", &NotFoundError{Entity: "sale", ID: saleID}
		}
		return "", "", fmt.Errorf("failed to fetch sale %d: %w", saleID, err)
	}
	return code, status, nil
}

// insertLinesTx resolves each product, fills in the catalog price where the
// caller left the unit price zero, derives the line amounts, and inserts.
func (s *saleService) insertLinesTx(ctx context.Context, tx pgx.Tx, saleID int, lines []SaleLineInput) error {
	for i, input := range lines {
		var salePrice decimal.Decimal
		err := tx.QueryRow(ctx,
			"SELECT sale_price FROM products WHERE id = $1 AND is_active = true",
			input.ProductID,
		).Scan(&salePrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("line %d: product %d not found or inactive", i+1, input.ProductID)
			}
			return fmt.Errorf("line %d: failed to resolve product: %w", i+1, err)
		}

		price := input.UnitPrice
		if price.IsZero() {
			price = salePrice
		}
		discount, subtotal := lineAmounts(input.Quantity, price, input.DiscountPct)

		_, err = tx.Exec(ctx, `
			INSERT INTO sale_lines (sale_id, product_id, quantity, unit_price, discount_pct, discount_amount, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, saleID, input.ProductID, input.Quantity, price, input.DiscountPct, discount, subtotal)
		if err != nil {
			return fmt.Errorf("failed to insert sale line %d: %w", i+1, err)
		}
	}
	return nil
}

// stockLine is the product/quantity pair a stock mutation needs.
type stockLine struct {
	productID int
	quantity  int
}

// fetchStockLinesTx reads a document's lines ordered by product so concurrent
// completions lock products in a stable order and cannot deadlock.
func fetchStockLinesTx(ctx context.Context, tx pgx.Tx, t documentTables, docID int) ([]stockLine, error) {
	rows, err := tx.Query(ctx,
		fmt.Sprintf("SELECT product_id, quantity FROM %s WHERE %s = $1 ORDER BY product_id, id", t.line, t.fk),
		docID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s for %s %d: %w", t.line, t.doc, docID, err)
	}
	defer rows.Close()

	var lines []stockLine
	for rows.Next() {
		var l stockLine
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			return nil, fmt.Errorf("failed to scan stock line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func fetchSaleLinesQ(ctx context.Context, q pgxRowQuerier, saleID int) ([]SaleLine, error) {
	rows, err := q.Query(ctx, `
		SELECT sl.id, sl.sale_id, sl.product_id, pr.code, pr.name,
		       sl.quantity, sl.unit_price, sl.discount_pct, sl.discount_amount, sl.subtotal
		FROM sale_lines sl
		JOIN products pr ON pr.id = sl.product_id
		WHERE sl.sale_id = $1
		ORDER BY sl.id
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale lines: %w", err)
	}
	defer rows.Close()

	var lines []SaleLine
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(
			&l.ID, &l.SaleID, &l.ProductID, &l.ProductCode, &l.ProductName,
			&l.Quantity, &l.UnitPrice, &l.DiscountPct, &l.DiscountAmount, &l.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sale line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}
