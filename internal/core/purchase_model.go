package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a purchasing document header, the mirror image of Sale:
// completion increments product stock and, for credit purchases, draws on the
// credit the supplier extends to us.
type Purchase struct {
	ID             int             `json:"id"`
	Code           string          `json:"code"`
	SupplierID     int             `json:"supplier_id"`
	SupplierCode   string          `json:"supplier_code"` // joined from suppliers
	SupplierName   string          `json:"supplier_name"` // joined from people
	PaymentType    PaymentType     `json:"payment_type"`
	VoucherType    VoucherType     `json:"voucher_type"`
	VoucherNumber  *string         `json:"voucher_number,omitempty"`
	PurchaseDate   string          `json:"purchase_date"` // YYYY-MM-DD
	DueDate        *string         `json:"due_date,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxPct         decimal.Decimal `json:"tax_pct"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	Status         DocumentStatus  `json:"status"`
	Notes          string          `json:"notes"`
	Lines          []PurchaseLine  `json:"lines"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsCredit reports whether the purchase draws on supplier-extended credit.
func (p *Purchase) IsCredit() bool { return p.PaymentType == PaymentCredit }

// PurchaseLine is one product row within a purchase. UnitPrice is the cost
// agreed with the supplier; completion copies it back to the product as its
// latest purchase price.
type PurchaseLine struct {
	ID             int             `json:"id"`
	PurchaseID     int             `json:"purchase_id"`
	ProductID      int             `json:"product_id"`
	ProductCode    string          `json:"product_code"` // joined from products
	ProductName    string          `json:"product_name"` // joined from products
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// PurchaseLineInput is one requested line when creating or editing a purchase.
// A zero UnitPrice means "use the product's current purchase price".
type PurchaseLineInput struct {
	ProductID   int
	Quantity    int
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
}

// PurchaseInput carries the header fields and initial lines for a new
// purchase, or the wholesale replacement when editing a pending one.
type PurchaseInput struct {
	SupplierID    int
	PaymentType   PaymentType
	VoucherType   VoucherType
	VoucherNumber string
	PurchaseDate  string // YYYY-MM-DD; empty means today
	DueDate       string // optional
	TaxPct        decimal.Decimal
	DiscountPct   decimal.Decimal
	Notes         string
	Lines         []PurchaseLineInput
}

// PurchaseFilter narrows GetPurchases results. Nil/empty fields are ignored.
type PurchaseFilter struct {
	Status     *DocumentStatus
	SupplierID *int
	DateFrom   string
	DateTo     string
}
