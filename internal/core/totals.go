package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// lineAmounts computes the derived monetary fields of a line item:
//
//	discount = round(quantity × unitPrice × discountPct/100, 2)
//	subtotal = round(quantity × unitPrice − discount, 2)
//
// Pure. Callers never supply these values; they are always recomputed here
// before a line is persisted.
func lineAmounts(quantity int, unitPrice, discountPct decimal.Decimal) (discount, subtotal decimal.Decimal) {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	discount = base.Mul(discountPct).Div(hundred).Round(2)
	subtotal = base.Sub(discount).Round(2)
	return discount, subtotal
}

// Totals holds the four derived monetary fields of a document header.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// documentTotals derives header totals from the sum of line subtotals. The
// header discount applies before tax: tax is charged on the discounted base.
func documentTotals(lineSubtotal, discountPct, taxPct decimal.Decimal) Totals {
	discount := lineSubtotal.Mul(discountPct).Div(hundred).Round(2)
	taxable := lineSubtotal.Sub(discount)
	tax := taxable.Mul(taxPct).Div(hundred).Round(2)
	return Totals{
		Subtotal:       lineSubtotal.Round(2),
		DiscountAmount: discount,
		TaxAmount:      tax,
		Total:          taxable.Add(tax).Round(2),
	}
}

// documentTables names the header table, line table, and line foreign key for
// one document kind. Only the two fixed instances below exist; the table names
// are never taken from input.
type documentTables struct {
	doc  string
	line string
	fk   string
}

var (
	saleTables     = documentTables{doc: "sales", line: "sale_lines", fk: "sale_id"}
	purchaseTables = documentTables{doc: "purchases", line: "purchase_lines", fk: "purchase_id"}
)

// recomputeTotalsTx re-derives and persists a document's totals from its lines,
// inside the caller's transaction. Must be called after every line mutation so
// the stored totals are never stale relative to the lines.
func recomputeTotalsTx(ctx context.Context, tx pgx.Tx, t documentTables, docID int) error {
	var lineSubtotal decimal.Decimal
	err := tx.QueryRow(ctx,
		fmt.Sprintf("SELECT COALESCE(SUM(subtotal), 0) FROM %s WHERE %s = $1", t.line, t.fk),
		docID,
	).Scan(&lineSubtotal)
	if err != nil {
		return fmt.Errorf("sum %s for %s %d: %w", t.line, t.doc, docID, err)
	}

	var discountPct, taxPct decimal.Decimal
	err = tx.QueryRow(ctx,
		fmt.Sprintf("SELECT discount_pct, tax_pct FROM %s WHERE id = $1", t.doc),
		docID,
	).Scan(&discountPct, &taxPct)
	if err != nil {
		return fmt.Errorf("read header percentages for %s %d: %w", t.doc, docID, err)
	}

	tot := documentTotals(lineSubtotal, discountPct, taxPct)
	_, err = tx.Exec(ctx,
		fmt.Sprintf(`
			UPDATE %s
			SET subtotal = $1, discount_amount = $2, tax_amount = $3, total = $4, updated_at = NOW()
			WHERE id = $5`, t.doc),
		tot.Subtotal, tot.DiscountAmount, tot.TaxAmount, tot.Total, docID,
	)
	if err != nil {
		return fmt.Errorf("persist totals for %s %d: %w", t.doc, docID, err)
	}
	return nil
}
