// Package render builds the print-style preview of an invoice. The preview is
// what gets rasterized for export.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/rezonia/invoicer/internal/currency"
	"github.com/rezonia/invoicer/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// DesktopWidthPx is the layout width the preview is rendered at, regardless
// of the caller's viewport.
const DesktopWidthPx = 896

// Document is the display form of an invoice: every value already formatted.
type Document struct {
	Title    string
	Number   string
	Date     string
	DueDate  string
	Currency string
	Logo     string

	From PartyBlock
	To   PartyBlock

	Rows   []Row
	Totals []TotalRow

	Notes     string
	Terms     string
	Signature *SignatureBlock
}

// PartyBlock is a heading followed by address lines; Lines[0] is the name
type PartyBlock struct {
	Heading string
	Lines   []string
}

// Row is one line of the items table
type Row struct {
	Description string
	Quantity    string
	Rate        string
	Amount      string
}

// TotalRow is a label/value pair under the items table
type TotalRow struct {
	Label    string
	Value    string
	Emphasis bool
}

// SignatureBlock is the signer's name and optional handwritten image
type SignatureBlock struct {
	Name  string
	Image string
}

// Build formats inv for display
func Build(inv model.Invoice) *Document {
	code := inv.Currency
	doc := &Document{
		Title:    "INVOICE",
		Number:   inv.Number,
		Date:     inv.Date,
		DueDate:  inv.DueDate,
		Currency: code,
		Logo:     inv.From.Logo,
		From:     partyBlock("From:", inv.From),
		To:       partyBlock("Bill To:", inv.To),
		Notes:    inv.Notes,
		Terms:    inv.Terms,
	}

	for _, item := range inv.Items {
		doc.Rows = append(doc.Rows, Row{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Rate:        currency.Format(item.Rate, code),
			Amount:      currency.Format(item.Amount, code),
		})
	}

	doc.Totals = append(doc.Totals, TotalRow{Label: "Subtotal:", Value: currency.Format(inv.Subtotal, code)})
	if !inv.DiscountAmount.IsZero() {
		label := "Discount:"
		if inv.Discount.Type == model.DiscountPercentage {
			label = "Discount (" + percent(inv.Discount.Value) + "):"
		}
		doc.Totals = append(doc.Totals, TotalRow{Label: label, Value: currency.Format(inv.DiscountAmount.Neg(), code)})
	}
	if inv.TaxRate.IsPositive() {
		doc.Totals = append(doc.Totals, TotalRow{
			Label: "Tax (" + percent(inv.TaxRate) + "):",
			Value: currency.Format(inv.TaxAmount, code),
		})
	}
	doc.Totals = append(doc.Totals, TotalRow{Label: "Total:", Value: currency.Format(inv.Total, code), Emphasis: true})

	if inv.Signature != nil {
		doc.Signature = &SignatureBlock{Name: inv.Signature.Name, Image: inv.Signature.Image}
	}

	return doc
}

// WriteHTML renders the preview as a standalone HTML page
func (d *Document) WriteHTML(w io.Writer) error {
	if err := templates.ExecuteTemplate(w, "preview.html", d); err != nil {
		return errors.Wrap(err, "rendering preview")
	}
	return nil
}

// HTML renders the preview into a byte slice
func (d *Document) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.WriteHTML(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LogoURL and SignatureURL let the template embed image data URLs, which
// html/template would otherwise replace with a placeholder.
func (d *Document) LogoURL() template.URL {
	return imageURL(d.Logo)
}

func (d *Document) SignatureURL() template.URL {
	if d.Signature == nil {
		return ""
	}
	return imageURL(d.Signature.Image)
}

// WidthPx is used by the template to pin the layout width
func (d *Document) WidthPx() int {
	return DesktopWidthPx
}

func imageURL(raw string) template.URL {
	if strings.HasPrefix(raw, "data:image/") {
		return template.URL(raw)
	}
	return ""
}

func partyBlock(heading string, p model.Party) PartyBlock {
	lines := []string{p.Name}
	if p.Email != "" {
		lines = append(lines, p.Email)
	}
	if p.Address != "" {
		lines = append(lines, p.Address)
	}
	if cityLine := joinNonEmpty(", ", p.City, p.PostalCode); cityLine != "" {
		lines = append(lines, cityLine)
	}
	if p.Country != "" {
		lines = append(lines, p.Country)
	}
	return PartyBlock{Heading: heading, Lines: lines}
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func percent(d decimal.Decimal) string {
	return d.String() + "%"
}
