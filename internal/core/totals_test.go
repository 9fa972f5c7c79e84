package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLineAmounts(t *testing.T) {
	tests := []struct {
		name         string
		quantity     int
		unitPrice    string
		discountPct  string
		wantDiscount string
		wantSubtotal string
	}{
		{"no discount", 3, "10.00", "0", "0.00", "30.00"},
		{"ten percent", 2, "25.50", "10", "5.10", "45.90"},
		{"full discount", 1, "99.99", "100", "99.99", "0.00"},
		{"rounding half up", 1, "10.01", "5", "0.50", "9.51"},
		{"fractional price", 7, "3.33", "15", "3.50", "19.81"},
		{"single unit", 1, "0.01", "0", "0.00", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, subtotal := lineAmounts(tt.quantity, dec(tt.unitPrice), dec(tt.discountPct))
			if !discount.Equal(dec(tt.wantDiscount)) {
				t.Errorf("discount: expected %s, got %s", tt.wantDiscount, discount)
			}
			if !subtotal.Equal(dec(tt.wantSubtotal)) {
				t.Errorf("subtotal: expected %s, got %s", tt.wantSubtotal, subtotal)
			}
		})
	}
}

func TestDocumentTotals(t *testing.T) {
	tests := []struct {
		name         string
		lineSubtotal string
		discountPct  string
		taxPct       string
		want         Totals
	}{
		{
			name: "discount before tax", lineSubtotal: "100.00", discountPct: "5", taxPct: "18",
			want: Totals{Subtotal: dec("100.00"), DiscountAmount: dec("5.00"), TaxAmount: dec("17.10"), Total: dec("112.10")},
		},
		{
			name: "no percentages", lineSubtotal: "45.90", discountPct: "0", taxPct: "0",
			want: Totals{Subtotal: dec("45.90"), DiscountAmount: dec("0.00"), TaxAmount: dec("0.00"), Total: dec("45.90")},
		},
		{
			name: "tax only", lineSubtotal: "145.90", discountPct: "0", taxPct: "18",
			want: Totals{Subtotal: dec("145.90"), DiscountAmount: dec("0.00"), TaxAmount: dec("26.26"), Total: dec("172.16")},
		},
		{
			name: "empty document", lineSubtotal: "0", discountPct: "10", taxPct: "18",
			want: Totals{Subtotal: dec("0.00"), DiscountAmount: dec("0.00"), TaxAmount: dec("0.00"), Total: dec("0.00")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := documentTotals(dec(tt.lineSubtotal), dec(tt.discountPct), dec(tt.taxPct))
			if !got.Subtotal.Equal(tt.want.Subtotal) {
				t.Errorf("subtotal: expected %s, got %s", tt.want.Subtotal, got.Subtotal)
			}
			if !got.DiscountAmount.Equal(tt.want.DiscountAmount) {
				t.Errorf("discount: expected %s, got %s", tt.want.DiscountAmount, got.DiscountAmount)
			}
			if !got.TaxAmount.Equal(tt.want.TaxAmount) {
				t.Errorf("tax: expected %s, got %s", tt.want.TaxAmount, got.TaxAmount)
			}
			if !got.Total.Equal(tt.want.Total) {
				t.Errorf("total: expected %s, got %s", tt.want.Total, got.Total)
			}
		})
	}
}

func TestCreditAvailableClampsAtZero(t *testing.T) {
	c := Client{CreditLimit: dec("100.00"), CreditUsed: dec("150.00")}
	if !c.CreditAvailable().IsZero() {
		t.Errorf("expected 0, got %s", c.CreditAvailable())
	}

	c = Client{CreditLimit: dec("100.00"), CreditUsed: dec("40.00")}
	if !c.CreditAvailable().Equal(dec("60.00")) {
		t.Errorf("expected 60.00, got %s", c.CreditAvailable())
	}
}

func TestCanPurchaseOnCredit(t *testing.T) {
	base := Client{IsActive: true, CreditTermDays: 30, CreditLimit: dec("100.00")}

	if !base.CanPurchaseOnCredit(dec("100.00")) {
		t.Error("amount equal to the available credit must be allowed")
	}
	if base.CanPurchaseOnCredit(dec("100.01")) {
		t.Error("amount above the available credit must be rejected")
	}

	inactive := base
	inactive.IsActive = false
	if inactive.CanPurchaseOnCredit(dec("1.00")) {
		t.Error("inactive client must not buy on credit")
	}

	noTerm := base
	noTerm.CreditTermDays = 0
	if noTerm.CanPurchaseOnCredit(dec("1.00")) {
		t.Error("client without a credit term must not buy on credit")
	}
}
