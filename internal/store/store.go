// Package store persists invoices per owner. Backends live in the sqlite and
// supabase subpackages; both share the row layout defined here.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/invoicer/internal/model"
)

// Summary is one entry of an owner's invoice list
type Summary struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	Date          string          `json:"date"`
	DueDate       string          `json:"due_date"`
	ToName        string          `json:"to_name"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Gateway is the persistence contract. Failures never touch the caller's
// draft; Save stores a copy.
type Gateway interface {
	Save(ctx context.Context, ownerID string, inv model.Invoice) (string, error)
	List(ctx context.Context, ownerID string) ([]Summary, error)
	Get(ctx context.Context, ownerID, id string) (model.Invoice, error)
	SoftDelete(ctx context.Context, ownerID, id string) error
}

// Row is the flat invoices table layout
type Row struct {
	ID             string          `json:"id,omitempty"`
	UserID         string          `json:"user_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	Date           string          `json:"date"`
	DueDate        string          `json:"due_date"`
	FromName       string          `json:"from_name"`
	FromEmail      string          `json:"from_email"`
	FromAddress    string          `json:"from_address"`
	FromCity       string          `json:"from_city"`
	FromPostalCode string          `json:"from_postal_code"`
	FromCountry    string          `json:"from_country"`
	FromLogo       string          `json:"from_logo"`
	ToName         string          `json:"to_name"`
	ToEmail        string          `json:"to_email"`
	ToAddress      string          `json:"to_address"`
	ToCity         string          `json:"to_city"`
	ToPostalCode   string          `json:"to_postal_code"`
	ToCountry      string          `json:"to_country"`
	Items          []model.Item    `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountType   string          `json:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	Notes          string          `json:"notes"`
	Terms          string          `json:"terms"`
	SignatureName  string          `json:"signature_name"`
	SignatureImage string          `json:"signature_image"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
	IsDeleted      bool            `json:"is_deleted"`
}

// RowFromInvoice flattens inv for ownerID
func RowFromInvoice(ownerID string, inv model.Invoice) Row {
	r := Row{
		UserID:         ownerID,
		InvoiceNumber:  inv.Number,
		Date:           inv.Date,
		DueDate:        inv.DueDate,
		FromName:       inv.From.Name,
		FromEmail:      inv.From.Email,
		FromAddress:    inv.From.Address,
		FromCity:       inv.From.City,
		FromPostalCode: inv.From.PostalCode,
		FromCountry:    inv.From.Country,
		FromLogo:       inv.From.Logo,
		ToName:         inv.To.Name,
		ToEmail:        inv.To.Email,
		ToAddress:      inv.To.Address,
		ToCity:         inv.To.City,
		ToPostalCode:   inv.To.PostalCode,
		ToCountry:      inv.To.Country,
		Items:          append([]model.Item(nil), inv.Items...),
		Subtotal:       inv.Subtotal,
		DiscountType:   string(inv.Discount.Type),
		DiscountValue:  inv.Discount.Value,
		DiscountAmount: inv.DiscountAmount,
		TaxRate:        inv.TaxRate,
		TaxAmount:      inv.TaxAmount,
		Total:          inv.Total,
		Currency:       inv.Currency,
		Notes:          inv.Notes,
		Terms:          inv.Terms,
	}
	if inv.Signature != nil {
		r.SignatureName = inv.Signature.Name
		r.SignatureImage = inv.Signature.Image
	}
	return r
}

// Invoice rebuilds the document model from a row
func (r Row) Invoice() model.Invoice {
	inv := model.Invoice{
		Number:   r.InvoiceNumber,
		Date:     r.Date,
		DueDate:  r.DueDate,
		Currency: r.Currency,
		From: model.Party{
			Name:       r.FromName,
			Email:      r.FromEmail,
			Address:    r.FromAddress,
			City:       r.FromCity,
			PostalCode: r.FromPostalCode,
			Country:    r.FromCountry,
			Logo:       r.FromLogo,
		},
		To: model.Party{
			Name:       r.ToName,
			Email:      r.ToEmail,
			Address:    r.ToAddress,
			City:       r.ToCity,
			PostalCode: r.ToPostalCode,
			Country:    r.ToCountry,
		},
		Items:          append([]model.Item{}, r.Items...),
		Discount:       model.Discount{Type: model.DiscountType(r.DiscountType), Value: r.DiscountValue},
		TaxRate:        r.TaxRate,
		Subtotal:       r.Subtotal,
		DiscountAmount: r.DiscountAmount,
		TaxAmount:      r.TaxAmount,
		Total:          r.Total,
		Notes:          r.Notes,
		Terms:          r.Terms,
	}
	if inv.Discount.Type != model.DiscountFixed {
		inv.Discount.Type = model.DiscountPercentage
	}
	if r.SignatureName != "" || r.SignatureImage != "" {
		inv.Signature = &model.Signature{Name: r.SignatureName, Image: r.SignatureImage}
	}
	return inv
}

// Summary projects the row onto a list entry
func (r Row) Summary() Summary {
	s := Summary{
		ID:            r.ID,
		InvoiceNumber: r.InvoiceNumber,
		Date:          r.Date,
		DueDate:       r.DueDate,
		ToName:        r.ToName,
		Currency:      r.Currency,
		Total:         r.Total,
	}
	if r.CreatedAt != nil {
		s.CreatedAt = *r.CreatedAt
	}
	return s
}
