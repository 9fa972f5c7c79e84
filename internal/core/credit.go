package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// counterpartyTable names the table and per-kind column names of one
// counterparty type. Clients and suppliers carry an identical credit profile;
// only the running-total and last-date columns differ. The two fixed instances
// below are the only values ever used — table names never come from input.
type counterpartyTable struct {
	name     string
	entity   string // for NotFoundError messages
	totalCol string
	dateCol  string
}

var (
	clientTable   = counterpartyTable{name: "clients", entity: "client", totalCol: "total_sales", dateCol: "last_sale_date"}
	supplierTable = counterpartyTable{name: "suppliers", entity: "supplier", totalCol: "total_purchases", dateCol: "last_purchase_date"}
)

// drawCreditTx increments the counterparty's credit_used by amount, failing
// with CreditLimitExceededError when the draw would exceed the limit. The row
// is locked FOR UPDATE so concurrent draws against the same counterparty
// serialize; the caller's transaction makes the draw atomic with the document
// transition that triggered it.
func drawCreditTx(ctx context.Context, tx pgx.Tx, t counterpartyTable, id int, amount decimal.Decimal) error {
	var limit, used decimal.Decimal
	err := tx.QueryRow(ctx,
		fmt.Sprintf("SELECT credit_limit, credit_used FROM %s WHERE id = $1 FOR UPDATE", t.name),
		id,
	).Scan(&limit, &used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Entity: t.entity, ID: id}
		}
		return fmt.Errorf("lock %s %d for credit draw: %w", t.entity, id, err)
	}

	if used.Add(amount).GreaterThan(limit) {
		available := limit.Sub(used)
		if available.IsNegative() {
			available = decimal.Zero
		}
		return &CreditLimitExceededError{Requested: amount, Available: available}
	}

	_, err = tx.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET credit_used = credit_used + $1, updated_at = NOW() WHERE id = $2", t.name),
		amount, id,
	)
	if err != nil {
		return fmt.Errorf("draw credit for %s %d: %w", t.entity, id, err)
	}
	return nil
}

// releaseCreditTx decrements credit_used by amount, floored at zero. Clamping
// instead of erroring tolerates a double release from a retried reversal; the
// trade-off is silent under-tracking if misused.
func releaseCreditTx(ctx context.Context, tx pgx.Tx, t counterpartyTable, id int, amount decimal.Decimal) error {
	tag, err := tx.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET credit_used = GREATEST(credit_used - $1, 0), updated_at = NOW() WHERE id = $2", t.name),
		amount, id,
	)
	if err != nil {
		return fmt.Errorf("release credit for %s %d: %w", t.entity, id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: t.entity, ID: id}
	}
	return nil
}

// recordTransactionTx adds the document total to the counterparty's running
// historical total and stamps the last-transaction date. Running totals are
// cumulative and are never decremented, including on cancellation.
func recordTransactionTx(ctx context.Context, tx pgx.Tx, t counterpartyTable, id int, amount decimal.Decimal, date string) error {
	tag, err := tx.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET %s = %s + $1, %s = $2, updated_at = NOW() WHERE id = $3",
			t.name, t.totalCol, t.totalCol, t.dateCol),
		amount, date, id,
	)
	if err != nil {
		return fmt.Errorf("record transaction for %s %d: %w", t.entity, id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: t.entity, ID: id}
	}
	return nil
}
