package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Code prefixes per entity type. The numeric suffix is zero-padded to six
// digits, e.g. VENT000001.
const (
	saleCodePrefix     = "VENT"
	purchaseCodePrefix = "COMP"
	clientCodePrefix   = "CLI"
	supplierCodePrefix = "PROV"
	productCodePrefix  = "PRD"
)

const codeNumberWidth = 6

// nextCodeTx reserves the next sequential code for a prefix within the caller's
// transaction. The upsert takes a row-level lock on the prefix row, so two
// concurrent callers serialize on it and can never observe the same number; the
// reservation commits or rolls back together with the document that uses it.
func nextCodeTx(ctx context.Context, tx pgx.Tx, prefix string) (string, error) {
	var n int64
	err := tx.QueryRow(ctx, `
		INSERT INTO code_sequences (prefix, last_number)
		VALUES ($1, 1)
		ON CONFLICT (prefix)
		DO UPDATE SET last_number = code_sequences.last_number + 1
		RETURNING last_number`,
		prefix,
	).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("reserve next %s code: %w", prefix, err)
	}
	return fmt.Sprintf("%s%0*d", prefix, codeNumberWidth, n), nil
}
