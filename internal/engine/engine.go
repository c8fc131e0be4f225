// Package engine derives item amounts and invoice totals from a draft.
//
// Every operation takes a draft by value and returns a new, fully consistent
// draft. Nothing here performs I/O or fails: malformed numeric input is
// coerced to a per-field default instead of being rejected.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoicer/internal/decimal"
	"github.com/rezonia/invoicer/internal/model"
)

// Patch is a partial update keyed by field name. Unknown keys are ignored.
type Patch map[string]any

// Invoice level patch keys
const (
	KeyNumber         = "invoice_number"
	KeyDate           = "date"
	KeyDueDate        = "due_date"
	KeyCurrency       = "currency"
	KeyFromName       = "from_name"
	KeyFromEmail      = "from_email"
	KeyFromAddress    = "from_address"
	KeyFromCity       = "from_city"
	KeyFromPostalCode = "from_postal_code"
	KeyFromCountry    = "from_country"
	KeyFromLogo       = "from_logo"
	KeyToName         = "to_name"
	KeyToEmail        = "to_email"
	KeyToAddress      = "to_address"
	KeyToCity         = "to_city"
	KeyToPostalCode   = "to_postal_code"
	KeyToCountry      = "to_country"
	KeyItems          = "items"
	KeyDiscountType   = "discount_type"
	KeyDiscountValue  = "discount_value"
	KeyTaxRate        = "tax_rate"
	KeyNotes          = "notes"
	KeyTerms          = "terms"
	KeySignatureName  = "signature_name"
	KeySignatureImage = "signature_image"
)

// Item level patch keys
const (
	KeyItemID          = "id"
	KeyItemDescription = "description"
	KeyItemQuantity    = "quantity"
	KeyItemRate        = "rate"
)

// Coercion defaults
var (
	DefaultQuantity = decimal.NewFromInt(1)
	DefaultRate     = decimal.Zero
	DefaultDiscount = decimal.Zero
	DefaultTaxRate  = decimal.Zero
)

var stringFields = map[string]func(inv *model.Invoice) *string{
	KeyNumber:         func(inv *model.Invoice) *string { return &inv.Number },
	KeyDate:           func(inv *model.Invoice) *string { return &inv.Date },
	KeyDueDate:        func(inv *model.Invoice) *string { return &inv.DueDate },
	KeyFromName:       func(inv *model.Invoice) *string { return &inv.From.Name },
	KeyFromEmail:      func(inv *model.Invoice) *string { return &inv.From.Email },
	KeyFromAddress:    func(inv *model.Invoice) *string { return &inv.From.Address },
	KeyFromCity:       func(inv *model.Invoice) *string { return &inv.From.City },
	KeyFromPostalCode: func(inv *model.Invoice) *string { return &inv.From.PostalCode },
	KeyFromCountry:    func(inv *model.Invoice) *string { return &inv.From.Country },
	KeyFromLogo:       func(inv *model.Invoice) *string { return &inv.From.Logo },
	KeyToName:         func(inv *model.Invoice) *string { return &inv.To.Name },
	KeyToEmail:        func(inv *model.Invoice) *string { return &inv.To.Email },
	KeyToAddress:      func(inv *model.Invoice) *string { return &inv.To.Address },
	KeyToCity:         func(inv *model.Invoice) *string { return &inv.To.City },
	KeyToPostalCode:   func(inv *model.Invoice) *string { return &inv.To.PostalCode },
	KeyToCountry:      func(inv *model.Invoice) *string { return &inv.To.Country },
	KeyNotes:          func(inv *model.Invoice) *string { return &inv.Notes },
	KeyTerms:          func(inv *model.Invoice) *string { return &inv.Terms },
}

// Recompute applies patch to a copy of draft and recalculates item amounts
// and the derived totals. A nil or empty patch only recalculates.
func Recompute(draft model.Invoice, patch Patch) model.Invoice {
	inv := draft.Clone()

	for key, value := range patch {
		if field, ok := stringFields[key]; ok {
			*field(&inv) = asString(value)
			continue
		}

		switch key {
		case KeyCurrency:
			inv.Currency = strings.ToUpper(strings.TrimSpace(asString(value)))
		case KeyItems:
			inv.Items = coerceItems(value)
		case KeyDiscountType:
			inv.Discount.Type = DiscountTypeOf(value)
		case KeyDiscountValue:
			inv.Discount.Value = money.ParseNumberOr(value, DefaultDiscount)
		case KeyTaxRate:
			inv.TaxRate = money.ParseNumberOr(value, DefaultTaxRate)
		case KeySignatureName:
			signature(&inv).Name = asString(value)
		case KeySignatureImage:
			signature(&inv).Image = asString(value)
		}
	}

	if inv.Signature != nil && inv.Signature.Name == "" && inv.Signature.Image == "" {
		inv.Signature = nil
	}

	derive(&inv)
	return inv
}

// UpdateItem patches the item at index. Recognized keys are description,
// quantity and rate. An out of range index leaves the items untouched.
func UpdateItem(draft model.Invoice, index int, patch Patch) model.Invoice {
	inv := draft.Clone()
	if index < 0 || index >= len(inv.Items) {
		derive(&inv)
		return inv
	}

	item := &inv.Items[index]
	for key, value := range patch {
		switch key {
		case KeyItemDescription:
			item.Description = asString(value)
		case KeyItemQuantity:
			item.Quantity = money.ParseIntOr(value, DefaultQuantity)
		case KeyItemRate:
			item.Rate = money.ParseNumberOr(value, DefaultRate)
		}
	}

	derive(&inv)
	return inv
}

// AddItem appends a blank item with the given id
func AddItem(draft model.Invoice, id string) model.Invoice {
	inv := draft.Clone()
	inv.Items = append(inv.Items, model.NewItem(id))
	derive(&inv)
	return inv
}

// RemoveItem drops the item at index; later items shift down by one.
// An out of range index leaves the items untouched.
func RemoveItem(draft model.Invoice, index int) model.Invoice {
	inv := draft.Clone()
	if index >= 0 && index < len(inv.Items) {
		inv.Items = append(inv.Items[:index], inv.Items[index+1:]...)
	}
	derive(&inv)
	return inv
}

// DiscountTypeOf maps any input to a discount type. Only "fixed" selects a
// fixed discount; everything else is a percentage.
func DiscountTypeOf(v any) model.DiscountType {
	if strings.EqualFold(strings.TrimSpace(asString(v)), string(model.DiscountFixed)) {
		return model.DiscountFixed
	}
	return model.DiscountPercentage
}

// derive recalculates every item amount, then subtotal, discount, tax and
// total. Amounts arriving stale from outside the engine are corrected here.
func derive(inv *model.Invoice) {
	amounts := make([]decimal.Decimal, len(inv.Items))
	for i := range inv.Items {
		inv.Items[i].Calculate()
		amounts[i] = inv.Items[i].Amount
	}
	subtotal := money.Sum(amounts)

	discount := money.Zero
	if money.IsPositive(inv.Discount.Value) {
		switch inv.Discount.Type {
		case model.DiscountFixed:
			// not clamped to subtotal
			discount = inv.Discount.Value
		default:
			discount = money.Percent(subtotal, inv.Discount.Value)
		}
	}

	taxable := subtotal.Sub(discount)
	tax := money.Percent(taxable, inv.TaxRate)

	inv.Subtotal = subtotal
	inv.DiscountAmount = discount
	inv.TaxAmount = tax
	inv.Total = taxable.Add(tax)
}

func signature(inv *model.Invoice) *model.Signature {
	if inv.Signature == nil {
		inv.Signature = &model.Signature{}
	}
	return inv.Signature
}

// coerceItems accepts []model.Item or decoded JSON ([]any of objects) and
// returns items with fresh amounts.
func coerceItems(v any) []model.Item {
	var items []model.Item

	switch raw := v.(type) {
	case []model.Item:
		items = make([]model.Item, len(raw))
		copy(items, raw)
		for i := range items {
			items[i].Quantity = money.ParseIntOr(items[i].Quantity, DefaultQuantity)
			items[i].Rate = money.ParseNumberOr(items[i].Rate, DefaultRate)
		}
	case []map[string]any:
		items = make([]model.Item, 0, len(raw))
		for _, m := range raw {
			items = append(items, itemFromMap(m))
		}
	case []any:
		items = make([]model.Item, 0, len(raw))
		for _, elem := range raw {
			switch e := elem.(type) {
			case map[string]any:
				items = append(items, itemFromMap(e))
			case model.Item:
				e.Quantity = money.ParseIntOr(e.Quantity, DefaultQuantity)
				e.Rate = money.ParseNumberOr(e.Rate, DefaultRate)
				items = append(items, e)
			}
		}
	default:
		items = []model.Item{}
	}

	for i := range items {
		items[i].Calculate()
	}
	return items
}

func itemFromMap(m map[string]any) model.Item {
	return model.Item{
		ID:          asString(m[KeyItemID]),
		Description: asString(m[KeyItemDescription]),
		Quantity:    money.ParseIntOr(m[KeyItemQuantity], DefaultQuantity),
		Rate:        money.ParseNumberOr(m[KeyItemRate], DefaultRate),
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
