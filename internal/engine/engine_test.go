package engine_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(d(expected)), "%s: expected %s, got %s", field, expected, got.String())
}

func newDraft() model.Invoice {
	return model.NewDraft(time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC), "item-1")
}

// withItems builds a draft whose items have the given quantity/rate pairs
func withItems(pairs ...[2]any) model.Invoice {
	inv := newDraft()
	inv = engine.RemoveItem(inv, 0)
	for i, p := range pairs {
		inv = engine.AddItem(inv, string(rune('a'+i)))
		inv = engine.UpdateItem(inv, i, engine.Patch{"quantity": p[0], "rate": p[1]})
	}
	return inv
}

func TestScenarioA_SingleItemWithTax(t *testing.T) {
	inv := withItems([2]any{40, 75})
	inv = engine.Recompute(inv, engine.Patch{"discount_value": 0, "tax_rate": 8.5})

	assertDecimal(t, "3000", inv.Subtotal, "subtotal")
	assertDecimal(t, "0", inv.DiscountAmount, "discount")
	assertDecimal(t, "255", inv.TaxAmount, "tax")
	assertDecimal(t, "3255", inv.Total, "total")
}

func TestScenarioB_PercentageDiscountAndTax(t *testing.T) {
	inv := withItems([2]any{40, 75}, [2]any{20, 85})
	inv = engine.Recompute(inv, engine.Patch{
		"discount_type":  "percentage",
		"discount_value": 10,
		"tax_rate":       "8.5",
	})

	assertDecimal(t, "4700", inv.Subtotal, "subtotal")
	assertDecimal(t, "470", inv.DiscountAmount, "discount")
	assertDecimal(t, "359.55", inv.TaxAmount, "tax")
	assertDecimal(t, "4589.55", inv.Total, "total")
}

func TestScenarioC_RemoveReindexes(t *testing.T) {
	inv := withItems([2]any{1, 10}, [2]any{2, 20}, [2]any{3, 30})
	assertDecimal(t, "140", inv.Subtotal, "subtotal before")

	inv = engine.RemoveItem(inv, 1)

	require.Len(t, inv.Items, 2)
	assert.Equal(t, "a", inv.Items[0].ID)
	assert.Equal(t, "c", inv.Items[1].ID)
	assertDecimal(t, "100", inv.Subtotal, "subtotal after")

	// index 1 now addresses what used to be index 2
	inv = engine.UpdateItem(inv, 1, engine.Patch{"description": "third"})
	assert.Equal(t, "third", inv.Items[1].Description)
}

func TestSubtotal_IndependentOfOrder(t *testing.T) {
	forward := withItems([2]any{1, 10}, [2]any{2, 20}, [2]any{3, 30}, [2]any{4, 40})
	backward := withItems([2]any{4, 40}, [2]any{3, 30}, [2]any{2, 20}, [2]any{1, 10})
	assert.True(t, forward.Subtotal.Equal(backward.Subtotal))

	// drop the 2x20 line from both
	forward = engine.RemoveItem(forward, 1)
	backward = engine.RemoveItem(backward, 2)
	assertDecimal(t, "260", forward.Subtotal, "forward")
	assertDecimal(t, "260", backward.Subtotal, "backward")

	sum := decimal.Zero
	for _, it := range forward.Items {
		sum = sum.Add(it.Quantity.Mul(it.Rate))
	}
	assert.True(t, sum.Equal(forward.Subtotal))
}

func TestPercentageDiscount(t *testing.T) {
	tests := []struct {
		value    any
		expected string
	}{
		{0, "0"},
		{10, "50"},
		{"12.5", "62.5"},
		{100, "500"},
		{-5, "0"},
		{"abc", "0"},
	}

	base := withItems([2]any{5, 100})
	for _, tt := range tests {
		inv := engine.Recompute(base, engine.Patch{"discount_type": "percentage", "discount_value": tt.value})
		assertDecimal(t, tt.expected, inv.DiscountAmount, "discount")
		assert.True(t, inv.Total.Equal(inv.Subtotal.Sub(inv.DiscountAmount).Add(inv.TaxAmount)))
	}
}

func TestFixedDiscount_NotClamped(t *testing.T) {
	inv := withItems([2]any{1, 100})
	inv = engine.Recompute(inv, engine.Patch{
		"discount_type":  "fixed",
		"discount_value": 150,
		"tax_rate":       10,
	})

	assertDecimal(t, "100", inv.Subtotal, "subtotal")
	assertDecimal(t, "150", inv.DiscountAmount, "discount")
	assertDecimal(t, "-5", inv.TaxAmount, "tax")
	assertDecimal(t, "-55", inv.Total, "total")
}

func TestDiscountTypeOf(t *testing.T) {
	tests := []struct {
		input    any
		expected model.DiscountType
	}{
		{"fixed", model.DiscountFixed},
		{" FIXED ", model.DiscountFixed},
		{"percentage", model.DiscountPercentage},
		{"flat", model.DiscountPercentage},
		{nil, model.DiscountPercentage},
		{42, model.DiscountPercentage},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, engine.DiscountTypeOf(tt.input), "input %v", tt.input)
	}
}

func TestUpdateItem_Coercion(t *testing.T) {
	tests := []struct {
		name     string
		patch    engine.Patch
		quantity string
		rate     string
		amount   string
	}{
		{"valid", engine.Patch{"quantity": "3", "rate": "12.5"}, "3", "12.5", "37.5"},
		{"unparseable quantity", engine.Patch{"quantity": "abc", "rate": 10}, "1", "10", "10"},
		{"empty quantity", engine.Patch{"quantity": "", "rate": 10}, "1", "10", "10"},
		{"trailing garbage quantity", engine.Patch{"quantity": "3abc", "rate": 10}, "1", "10", "10"},
		{"exponent quantity", engine.Patch{"quantity": "1e1", "rate": 10}, "10", "10", "100"},
		{"negative quantity", engine.Patch{"quantity": -2, "rate": 10}, "1", "10", "10"},
		{"fractional quantity truncated", engine.Patch{"quantity": 2.9, "rate": 10}, "2", "10", "20"},
		{"zero quantity accepted", engine.Patch{"quantity": 0, "rate": 10}, "0", "10", "0"},
		{"unparseable rate", engine.Patch{"quantity": 2, "rate": "x"}, "2", "0", "0"},
		{"negative rate", engine.Patch{"quantity": 2, "rate": "-1"}, "2", "0", "0"},
		{"nan rate", engine.Patch{"quantity": 2, "rate": math.NaN()}, "2", "0", "0"},
		{"json number", engine.Patch{"quantity": json.Number("4"), "rate": json.Number("2.25")}, "4", "2.25", "9"},
		{"nil values", engine.Patch{"quantity": nil, "rate": nil}, "1", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := engine.UpdateItem(newDraft(), 0, tt.patch)
			item := inv.Items[0]
			assertDecimal(t, tt.quantity, item.Quantity, "quantity")
			assertDecimal(t, tt.rate, item.Rate, "rate")
			assertDecimal(t, tt.amount, item.Amount, "amount")
			assert.True(t, inv.Subtotal.Equal(item.Amount))
		})
	}
}

func TestUpdateItem_DescriptionKeepsAmount(t *testing.T) {
	inv := withItems([2]any{2, 50})
	inv = engine.UpdateItem(inv, 0, engine.Patch{"description": "Consulting", "amount": 1})

	assert.Equal(t, "Consulting", inv.Items[0].Description)
	assertDecimal(t, "100", inv.Items[0].Amount, "amount")
}

func TestRecompute_CorrectsStaleAmounts(t *testing.T) {
	inv := newDraft()
	inv.Items = []model.Item{
		{ID: "a", Quantity: d("2"), Rate: d("5"), Amount: d("0")},
		{ID: "b", Quantity: d("3"), Rate: d("10"), Amount: d("999")},
	}

	got := engine.Recompute(inv, nil)

	assertDecimal(t, "10", got.Items[0].Amount, "items[0].amount")
	assertDecimal(t, "30", got.Items[1].Amount, "items[1].amount")
	assertDecimal(t, "40", got.Subtotal, "subtotal")
	assertDecimal(t, "40", got.Total, "total")
	assertDecimal(t, "0", inv.Items[0].Amount, "input draft")
	assert.Equal(t, got, engine.Recompute(got, nil))
}

func TestUpdateItem_OutOfRange(t *testing.T) {
	inv := withItems([2]any{2, 50})

	for _, idx := range []int{-1, 1, 99} {
		got := engine.UpdateItem(inv, idx, engine.Patch{"quantity": 9})
		assert.Equal(t, inv, got)
	}
	assert.Equal(t, inv, engine.RemoveItem(inv, 5))
}

func TestRecompute_DoesNotMutateInput(t *testing.T) {
	inv := withItems([2]any{2, 50})
	before := inv.Clone()

	_ = engine.Recompute(inv, engine.Patch{"items": []any{}, "tax_rate": 20, "invoice_number": "X"})
	_ = engine.UpdateItem(inv, 0, engine.Patch{"quantity": 7})
	_ = engine.RemoveItem(inv, 0)

	assert.Equal(t, before, inv)
}

func TestRecompute_Idempotent(t *testing.T) {
	patch := engine.Patch{
		"discount_type":  "fixed",
		"discount_value": "12.34",
		"tax_rate":       7,
		"invoice_number": "INV-1",
	}
	inv := withItems([2]any{3, "19.99"}, [2]any{1, 5})

	once := engine.Recompute(inv, patch)
	twice := engine.Recompute(once, patch)

	assert.Equal(t, once, twice)
}

func TestRecompute_Fields(t *testing.T) {
	inv := engine.Recompute(newDraft(), engine.Patch{
		"invoice_number":   1001,
		"currency":         " eur ",
		"from_name":        "Acme",
		"from_email":       "billing@acme.test",
		"from_postal_code": "10115",
		"to_name":          "Globex",
		"to_country":       "DE",
		"notes":            "Thanks",
		"terms":            "Net 30",
		"signature_name":   "Jane Doe",
		"subtotal":         999,
		"unknown":          "ignored",
	})

	assert.Equal(t, "1001", inv.Number)
	assert.Equal(t, "EUR", inv.Currency)
	assert.Equal(t, "Acme", inv.From.Name)
	assert.Equal(t, "billing@acme.test", inv.From.Email)
	assert.Equal(t, "10115", inv.From.PostalCode)
	assert.Equal(t, "Globex", inv.To.Name)
	assert.Equal(t, "DE", inv.To.Country)
	assert.Equal(t, "Thanks", inv.Notes)
	assert.Equal(t, "Net 30", inv.Terms)
	require.NotNil(t, inv.Signature)
	assert.Equal(t, "Jane Doe", inv.Signature.Name)
	assert.True(t, inv.Subtotal.IsZero(), "derived fields are not patchable")

	cleared := engine.Recompute(inv, engine.Patch{"signature_name": ""})
	assert.Nil(t, cleared.Signature)
}

func TestRecompute_WholesaleItems(t *testing.T) {
	var decoded []any
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"a","description":"Design","quantity":"40","rate":75,"amount":1},
		{"id":"b","quantity":"oops","rate":-3}
	]`), &decoded))

	inv := engine.Recompute(newDraft(), engine.Patch{"items": decoded})

	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Design", inv.Items[0].Description)
	assertDecimal(t, "3000", inv.Items[0].Amount, "amount a")
	assertDecimal(t, "1", inv.Items[1].Quantity, "quantity b")
	assertDecimal(t, "0", inv.Items[1].Rate, "rate b")
	assertDecimal(t, "3000", inv.Subtotal, "subtotal")

	typed := engine.Recompute(newDraft(), engine.Patch{"items": []model.Item{
		{ID: "x", Quantity: d("2"), Rate: d("3"), Amount: d("100")},
	}})
	assertDecimal(t, "6", typed.Items[0].Amount, "typed amount")
	assertDecimal(t, "6", typed.Total, "typed total")
}

func BenchmarkRecompute(b *testing.B) {
	inv := newDraft()
	for i := 0; i < 50; i++ {
		inv = engine.AddItem(inv, "x")
		inv = engine.UpdateItem(inv, i+1, engine.Patch{"quantity": i + 1, "rate": "19.99"})
	}
	patch := engine.Patch{"discount_value": 5, "tax_rate": 8.5}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Recompute(inv, patch)
	}
}
