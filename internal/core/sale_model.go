package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a sales document header. Status moves through the state machine:
//
//	Pending → Completed → Cancelled
//	Pending → Cancelled
//
// Completion decrements product stock and, for credit sales, draws on the
// client's credit; cancellation of a completed sale reverses both.
type Sale struct {
	ID             int             `json:"id"`
	Code           string          `json:"code"`
	ClientID       int             `json:"client_id"`
	ClientCode     string          `json:"client_code"` // joined from clients
	ClientName     string          `json:"client_name"` // joined from people
	PaymentType    PaymentType     `json:"payment_type"`
	VoucherType    VoucherType     `json:"voucher_type"`
	VoucherNumber  *string         `json:"voucher_number,omitempty"`
	SaleDate       string          `json:"sale_date"` // YYYY-MM-DD
	DueDate        *string         `json:"due_date,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxPct         decimal.Decimal `json:"tax_pct"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	Status         DocumentStatus  `json:"status"`
	Notes          string          `json:"notes"`
	Lines          []SaleLine      `json:"lines"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsCredit reports whether the sale draws on the client's credit line.
func (s *Sale) IsCredit() bool { return s.PaymentType == PaymentCredit }

// IsOverdue reports whether a credit sale is past its due date.
func (s *Sale) IsOverdue(today string) bool {
	return s.IsCredit() && s.DueDate != nil && *s.DueDate < today
}

// SaleLine is one product row within a sale. UnitPrice is captured at creation
// and does not track later product price changes. DiscountAmount and Subtotal
// are derived server-side (see lineAmounts), never taken from the caller.
type SaleLine struct {
	ID             int             `json:"id"`
	SaleID         int             `json:"sale_id"`
	ProductID      int             `json:"product_id"`
	ProductCode    string          `json:"product_code"` // joined from products
	ProductName    string          `json:"product_name"` // joined from products
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// SaleLineInput is one requested line when creating or editing a sale.
// A zero UnitPrice means "use the product's current sale price".
type SaleLineInput struct {
	ProductID   int
	Quantity    int
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
}

// SaleInput carries the header fields and initial lines for a new sale, or the
// wholesale replacement when editing a pending one.
type SaleInput struct {
	ClientID      int
	PaymentType   PaymentType
	VoucherType   VoucherType
	VoucherNumber string
	SaleDate      string // YYYY-MM-DD; empty means today
	DueDate       string // optional
	TaxPct        decimal.Decimal
	DiscountPct   decimal.Decimal
	Notes         string
	Lines         []SaleLineInput
}

// SaleFilter narrows GetSales results. Nil/empty fields are ignored.
type SaleFilter struct {
	Status   *DocumentStatus
	ClientID *int
	DateFrom string
	DateTo   string
}
