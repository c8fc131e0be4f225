package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/invoicer/internal/currency"
	money "github.com/rezonia/invoicer/internal/decimal"
)

// DiscountType selects how Discount.Value is interpreted
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// DateLayout is the wire format of invoice dates
const DateLayout = "2006-01-02"

// DefaultPaymentDays is the gap between date and due date on a new draft
const DefaultPaymentDays = 30

// Invoice is the draft being edited. Subtotal, DiscountAmount, TaxAmount and
// Total are derived by the engine and never set directly.
type Invoice struct {
	// Header
	Number   string `json:"invoice_number"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DueDate  string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Currency string `json:"currency" validate:"required,currency"`

	// Parties
	From Party `json:"from"`
	To   Party `json:"to"`

	// Line items, in print order
	Items []Item `json:"items" validate:"required,min=1,dive"`

	Discount Discount        `json:"discount"`
	TaxRate  decimal.Decimal `json:"tax_rate" validate:"gte=0,lte=100"`

	// Derived
	Subtotal       decimal.Decimal `json:"subtotal" validate:"gte=0"`
	DiscountAmount decimal.Decimal `json:"discount_amount" validate:"gte=0"`
	TaxAmount      decimal.Decimal `json:"tax_amount" validate:"gte=0"`
	Total          decimal.Decimal `json:"total" validate:"gte=0"`

	// Optional
	Notes     string     `json:"notes,omitempty"`
	Terms     string     `json:"terms,omitempty"`
	Signature *Signature `json:"signature,omitempty"`
}

// Party represents sender or recipient
type Party struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Logo       string `json:"logo,omitempty"` // image data URL, sender only
}

// Item represents one invoice line
type Item struct {
	ID          string          `json:"id" validate:"required"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gte=1"`
	Rate        decimal.Decimal `json:"rate" validate:"gte=0"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"` // Quantity * Rate
}

// Discount describes the invoice level discount
type Discount struct {
	Type  DiscountType    `json:"type" validate:"oneof=percentage fixed"`
	Value decimal.Decimal `json:"value" validate:"gte=0"`
}

// Signature is the handwritten signature block
type Signature struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"` // image data URL
}

// NewItem returns a blank line with quantity 1
func NewItem(id string) Item {
	return Item{
		ID:       id,
		Quantity: decimal.NewFromInt(1),
		Rate:     decimal.Zero,
		Amount:   decimal.Zero,
	}
}

// Calculate recomputes Amount from Quantity and Rate
func (it *Item) Calculate() {
	it.Amount = money.Amount(it.Quantity, it.Rate)
}

// NewDraft returns the empty draft a session starts with: one blank item,
// zero totals, dated now and due DefaultPaymentDays later.
func NewDraft(now time.Time, itemID string) Invoice {
	return Invoice{
		Date:     now.Format(DateLayout),
		DueDate:  now.AddDate(0, 0, DefaultPaymentDays).Format(DateLayout),
		Currency: currency.Default,
		Items:    []Item{NewItem(itemID)},
		Discount: Discount{Type: DiscountPercentage, Value: decimal.Zero},
		TaxRate:  decimal.Zero,

		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
		Total:          decimal.Zero,
	}
}

// Clone returns a copy that shares no mutable state with inv
func (inv Invoice) Clone() Invoice {
	out := inv
	if inv.Items != nil {
		out.Items = make([]Item, len(inv.Items))
		copy(out.Items, inv.Items)
	}
	if inv.Signature != nil {
		sig := *inv.Signature
		out.Signature = &sig
	}
	return out
}
