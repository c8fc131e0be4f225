// Package invoicelib provides a public API for building and exporting
// invoices.
//
// Drafts are edited through pure functions that always return a new draft
// with consistent totals. Validation and PDF export run on demand.
//
// Example usage:
//
//	inv := invoicelib.NewDraft()
//	inv = invoicelib.Update(inv, invoicelib.Patch{"invoice_number": "INV-001", "to_name": "Globex"})
//	inv = invoicelib.UpdateItem(inv, 0, invoicelib.Patch{"description": "Design", "quantity": 40, "rate": 75})
//	pdf, err := invoicelib.NewExporter().Export(ctx, inv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(pdf.Pages, inv.Total)
package invoicelib

import (
	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/model"
)

// Re-export core types for public API
type (
	Invoice      = model.Invoice
	Item         = model.Item
	Party        = model.Party
	Discount     = model.Discount
	DiscountType = model.DiscountType
	Signature    = model.Signature
	Patch        = engine.Patch
)

// Re-export discount types
const (
	DiscountPercentage = model.DiscountPercentage
	DiscountFixed      = model.DiscountFixed
)

// Re-export error types
type (
	ValidationError  = model.ValidationError
	ValidationReport = model.ValidationReport
)

// Re-export error classification
var (
	IsValidation   = model.IsValidation
	IsPrecondition = model.IsPrecondition
	IsExternal     = model.IsExternal
	UserMessage    = model.UserMessage
)
