package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/store"
)

func TestRow_RoundTrip(t *testing.T) {
	inv := model.NewDraft(time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC), "a")
	inv = engine.UpdateItem(inv, 0, engine.Patch{"description": "Design", "quantity": 2, "rate": "49.5"})
	inv = engine.Recompute(inv, engine.Patch{
		"invoice_number": "INV-9",
		"from_name":      "Acme",
		"to_name":        "Globex",
		"to_city":        "Springfield",
		"discount_type":  "fixed",
		"discount_value": 9,
		"tax_rate":       20,
		"signature_name": "Jane",
	})

	row := store.RowFromInvoice("owner-1", inv)
	assert.Equal(t, "owner-1", row.UserID)
	assert.Equal(t, "fixed", row.DiscountType)
	assert.Equal(t, "Jane", row.SignatureName)

	back := row.Invoice()
	assert.Equal(t, inv, back)

	created := time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC)
	row.ID = "id-1"
	row.CreatedAt = &created
	s := row.Summary()
	assert.Equal(t, "id-1", s.ID)
	assert.Equal(t, "INV-9", s.InvoiceNumber)
	assert.Equal(t, "Globex", s.ToName)
	assert.True(t, s.Total.Equal(inv.Total))
	assert.Equal(t, created, s.CreatedAt)
}

func TestRow_UnknownDiscountTypeReadsAsPercentage(t *testing.T) {
	row := store.Row{DiscountType: "", Items: []model.Item{}}
	require.Equal(t, model.DiscountPercentage, row.Invoice().Discount.Type)
}
