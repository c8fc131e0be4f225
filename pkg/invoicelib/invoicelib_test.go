package invoicelib_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoicer/pkg/invoicelib"
)

func filledDraft() invoicelib.Invoice {
	inv := invoicelib.NewDraft()
	inv = invoicelib.Update(inv, invoicelib.Patch{
		"invoice_number": "INV-001",
		"from_name":      "Acme",
		"to_name":        "Globex",
		"tax_rate":       10,
	})
	return invoicelib.UpdateItem(inv, 0, invoicelib.Patch{"description": "Design", "quantity": 2, "rate": 50})
}

func TestNewDraft(t *testing.T) {
	inv := invoicelib.NewDraft()

	require.Len(t, inv.Items, 1)
	assert.NotEmpty(t, inv.Items[0].ID)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, invoicelib.DiscountPercentage, inv.Discount.Type)
	assert.True(t, inv.Total.IsZero())
}

func TestDraftEditing(t *testing.T) {
	inv := filledDraft()
	assert.Equal(t, "100.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "110.00", inv.Total.StringFixed(2))

	more := invoicelib.AddItem(inv)
	require.Len(t, more.Items, 2)
	assert.NotEqual(t, more.Items[0].ID, more.Items[1].ID)
	assert.Len(t, inv.Items, 1, "input draft is not modified")

	less := invoicelib.RemoveItem(more, 0)
	require.Len(t, less.Items, 1)
	assert.True(t, less.Total.IsZero())
}

func TestUpdate_FixesItemAmounts(t *testing.T) {
	inv := filledDraft()
	inv.Items[0].Amount = inv.Items[0].Amount.Add(inv.Items[0].Amount)

	fixed := invoicelib.Update(inv, nil)
	assert.Equal(t, "100.00", fixed.Items[0].Amount.StringFixed(2))
	assert.Equal(t, "110.00", fixed.Total.StringFixed(2))
	assert.False(t, invoicelib.Validate(fixed).HasErrors())
}

func TestValidate(t *testing.T) {
	assert.False(t, invoicelib.Validate(filledDraft()).HasErrors())

	inv := filledDraft()
	inv.Currency = "XYZ"
	report := invoicelib.Validate(inv)
	require.True(t, report.HasErrors())
	assert.True(t, invoicelib.IsValidation(report.Err()))
}

func TestDefaultExportOptions(t *testing.T) {
	opts := invoicelib.DefaultExportOptions()

	assert.Equal(t, 896, opts.Width)
	assert.Empty(t, opts.Command)
	assert.False(t, opts.TrailingBlankPage)
}

func TestExport(t *testing.T) {
	pdf, err := invoicelib.NewExporter().Export(context.Background(), filledDraft())
	require.NoError(t, err)

	assert.Equal(t, "Invoice-INV-001.pdf", pdf.Filename)
	assert.GreaterOrEqual(t, pdf.Pages, 1)
	assert.True(t, bytes.HasPrefix(pdf.Data, []byte("%PDF-")))
}

func TestExport_MissingNumber(t *testing.T) {
	inv := invoicelib.Update(filledDraft(), invoicelib.Patch{"invoice_number": ""})

	_, err := invoicelib.NewExporter().Export(context.Background(), inv)
	require.Error(t, err)
	assert.True(t, invoicelib.IsPrecondition(err))
	assert.Equal(t, "Please enter an invoice number before generating the PDF.", invoicelib.UserMessage(err, ""))
}
