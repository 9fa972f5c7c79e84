package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentStatus is the lifecycle state shared by sales and purchases.
// Pending is the only state in which a document may be edited or deleted.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "Pending"
	StatusCompleted DocumentStatus = "Completed"
	StatusCancelled DocumentStatus = "Cancelled"
)

type PaymentType string

const (
	PaymentCash   PaymentType = "Cash"
	PaymentCredit PaymentType = "Credit"
)

func (p PaymentType) valid() bool {
	return p == PaymentCash || p == PaymentCredit
}

// VoucherType is the fiscal receipt kind attached to a document header.
type VoucherType string

const (
	VoucherInvoice VoucherType = "Invoice"
	VoucherTicket  VoucherType = "Ticket"
	VoucherNote    VoucherType = "Note"
	VoucherReceipt VoucherType = "Receipt"
	VoucherOther   VoucherType = "Other"
)

func (v VoucherType) valid() bool {
	switch v {
	case VoucherInvoice, VoucherTicket, VoucherNote, VoucherReceipt, VoucherOther:
		return true
	}
	return false
}

// Category groups products in the catalog.
type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product is a sellable item. Stock is mutated only by document
// completion/cancellation, never written directly by handlers.
type Product struct {
	ID            int             `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	CategoryID    int             `json:"category_id"`
	CategoryName  string          `json:"category_name"` // joined from categories
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Stock         int             `json:"stock"`
	MinStock      int             `json:"min_stock"`
	Unit          string          `json:"unit"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LowOnStock reports whether the product is at or below its minimum threshold.
func (p *Product) LowOnStock() bool {
	return p.Stock <= p.MinStock
}

// Person holds the identity and contact data shared by clients and suppliers.
type Person struct {
	ID             int       `json:"id"`
	DocumentType   string    `json:"document_type"`
	DocumentNumber string    `json:"document_number"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Client is a counterparty we sell to and may extend credit to.
type Client struct {
	ID             int             `json:"id"`
	PersonID       int             `json:"person_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"` // joined from people
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	CreditUsed     decimal.Decimal `json:"credit_used"`
	CreditTermDays int             `json:"credit_term_days"`
	LastSaleDate   *string         `json:"last_sale_date,omitempty"` // YYYY-MM-DD
	TotalSales     decimal.Decimal `json:"total_sales"`
	Notes          string          `json:"notes"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CreditAvailable returns limit − used, clamped at zero.
func (c *Client) CreditAvailable() decimal.Decimal {
	avail := c.CreditLimit.Sub(c.CreditUsed)
	if avail.IsNegative() {
		return decimal.Zero
	}
	return avail
}

// CanPurchaseOnCredit reports whether a credit sale of the given amount is allowed:
// the client must be active, have a credit term configured, and enough headroom.
func (c *Client) CanPurchaseOnCredit(amount decimal.Decimal) bool {
	return c.IsActive && c.CreditTermDays > 0 && c.CreditAvailable().GreaterThanOrEqual(amount)
}

// Supplier is a counterparty we buy from; they extend credit to us.
type Supplier struct {
	ID               int             `json:"id"`
	PersonID         int             `json:"person_id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"` // joined from people
	CreditLimit      decimal.Decimal `json:"credit_limit"`
	CreditUsed       decimal.Decimal `json:"credit_used"`
	CreditTermDays   int             `json:"credit_term_days"`
	LastPurchaseDate *string         `json:"last_purchase_date,omitempty"` // YYYY-MM-DD
	TotalPurchases   decimal.Decimal `json:"total_purchases"`
	Notes            string          `json:"notes"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
}

// CreditAvailable returns limit − used, clamped at zero.
func (s *Supplier) CreditAvailable() decimal.Decimal {
	avail := s.CreditLimit.Sub(s.CreditUsed)
	if avail.IsNegative() {
		return decimal.Zero
	}
	return avail
}

// CanPurchaseOnCredit reports whether a credit purchase of the given amount
// fits within the credit the supplier extends to us.
func (s *Supplier) CanPurchaseOnCredit(amount decimal.Decimal) bool {
	return s.IsActive && s.CreditTermDays > 0 && s.CreditAvailable().GreaterThanOrEqual(amount)
}
