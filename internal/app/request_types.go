package app

import (
	"github.com/shopspring/decimal"

	"sales-backend/internal/core"
)

// ProductRequest is the input for creating or updating a product.
type ProductRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	CategoryID    int             `json:"category_id"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	MinStock      int             `json:"min_stock"`
	Unit          string          `json:"unit"`
}

// CounterpartyRequest is the input for creating or updating a client or
// supplier, including the shared person fields.
type CounterpartyRequest struct {
	DocumentType   string          `json:"document_type"`
	DocumentNumber string          `json:"document_number"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	CreditTermDays int             `json:"credit_term_days"`
	Notes          string          `json:"notes"`
}

func (r CounterpartyRequest) toCore() core.CounterpartyInput {
	return core.CounterpartyInput{
		Person: core.PersonInput{
			DocumentType:   r.DocumentType,
			DocumentNumber: r.DocumentNumber,
			FirstName:      r.FirstName,
			LastName:       r.LastName,
			Email:          r.Email,
			Phone:          r.Phone,
			Address:        r.Address,
		},
		CreditLimit:    r.CreditLimit,
		CreditTermDays: r.CreditTermDays,
		Notes:          r.Notes,
	}
}

// DocumentRequest is the shared input shape for creating or updating a sale or
// purchase. CounterpartyID is the client for sales, the supplier for
// purchases.
type DocumentRequest struct {
	CounterpartyID int                `json:"counterparty_id"`
	PaymentType    core.PaymentType   `json:"payment_type"`
	VoucherType    core.VoucherType   `json:"voucher_type"`
	VoucherNumber  string             `json:"voucher_number"`
	Date           string             `json:"date"` // YYYY-MM-DD; empty means today
	DueDate        string             `json:"due_date"`
	TaxPct         decimal.Decimal    `json:"tax_pct"`
	DiscountPct    decimal.Decimal    `json:"discount_pct"`
	Notes          string             `json:"notes"`
	Lines          []DocumentLineItem `json:"lines"`
}

// DocumentLineItem is a single line within a DocumentRequest.
type DocumentLineItem struct {
	ProductID   int             `json:"product_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"` // zero means "use catalog price"
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

func (r DocumentRequest) toSaleInput() core.SaleInput {
	lines := make([]core.SaleLineInput, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = core.SaleLineInput{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
		}
	}
	return core.SaleInput{
		ClientID:      r.CounterpartyID,
		PaymentType:   r.PaymentType,
		VoucherType:   r.VoucherType,
		VoucherNumber: r.VoucherNumber,
		SaleDate:      r.Date,
		DueDate:       r.DueDate,
		TaxPct:        r.TaxPct,
		DiscountPct:   r.DiscountPct,
		Notes:         r.Notes,
		Lines:         lines,
	}
}

func (r DocumentRequest) toPurchaseInput() core.PurchaseInput {
	lines := make([]core.PurchaseLineInput, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = core.PurchaseLineInput{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
		}
	}
	return core.PurchaseInput{
		SupplierID:    r.CounterpartyID,
		PaymentType:   r.PaymentType,
		VoucherType:   r.VoucherType,
		VoucherNumber: r.VoucherNumber,
		PurchaseDate:  r.Date,
		DueDate:       r.DueDate,
		TaxPct:        r.TaxPct,
		DiscountPct:   r.DiscountPct,
		Notes:         r.Notes,
		Lines:         lines,
	}
}
