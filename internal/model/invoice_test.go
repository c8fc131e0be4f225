package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoicer/internal/model"
)

func TestNewDraft(t *testing.T) {
	now := time.Date(2026, 1, 18, 9, 30, 0, 0, time.UTC)
	inv := model.NewDraft(now, "item-1")

	assert.Equal(t, "2026-01-18", inv.Date)
	assert.Equal(t, "2026-02-17", inv.DueDate)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, model.DiscountPercentage, inv.Discount.Type)
	assert.True(t, inv.Discount.Value.IsZero())
	assert.True(t, inv.TaxRate.IsZero())
	assert.Empty(t, inv.Number)
	assert.Nil(t, inv.Signature)

	require.Len(t, inv.Items, 1)
	item := inv.Items[0]
	assert.Equal(t, "item-1", item.ID)
	assert.Empty(t, item.Description)
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, item.Rate.IsZero())
	assert.True(t, item.Amount.IsZero())

	for _, d := range []decimal.Decimal{inv.Subtotal, inv.DiscountAmount, inv.TaxAmount, inv.Total} {
		assert.True(t, d.IsZero())
	}
}

func TestItem_Calculate(t *testing.T) {
	item := model.Item{
		ID:       "a",
		Quantity: decimal.NewFromInt(40),
		Rate:     decimal.NewFromInt(75),
	}

	item.Calculate()

	// Amount = 40 * 75 = 3000
	assert.True(t, item.Amount.Equal(decimal.NewFromInt(3000)),
		"Expected amount 3000, got %s", item.Amount.String())
}

func TestItem_CalculateFractionalRate(t *testing.T) {
	item := model.Item{
		Quantity: decimal.NewFromInt(3),
		Rate:     decimal.RequireFromString("0.1"),
	}

	item.Calculate()

	assert.Equal(t, "0.3", item.Amount.String())
}

func TestInvoice_CloneIsIndependent(t *testing.T) {
	inv := model.NewDraft(time.Now(), "item-1")
	inv.Signature = &model.Signature{Name: "Jane"}

	cp := inv.Clone()
	cp.Items[0].Description = "changed"
	cp.Signature.Name = "John"
	cp.Items = append(cp.Items, model.NewItem("item-2"))

	assert.Empty(t, inv.Items[0].Description)
	assert.Equal(t, "Jane", inv.Signature.Name)
	assert.Len(t, inv.Items, 1)
}
