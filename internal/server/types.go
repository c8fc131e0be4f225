package server

import (
	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/store"
)

// CalculateRequest applies a patch to a posted invoice
type CalculateRequest struct {
	Invoice model.Invoice `json:"invoice"`
	Patch   engine.Patch  `json:"patch"`
}

// DraftResponse is a workspace draft
type DraftResponse struct {
	ID      string        `json:"id"`
	Invoice model.Invoice `json:"invoice"`
}

// ValidationResponse is the response for validate endpoints
type ValidationResponse struct {
	Valid  bool                     `json:"valid"`
	Errors []*model.ValidationError `json:"errors,omitempty"`
}

// SaveRequest stores either a workspace draft or a posted invoice
type SaveRequest struct {
	DraftID string         `json:"draft_id,omitempty"`
	Invoice *model.Invoice `json:"invoice,omitempty"`
}

// SaveResponse is returned after an invoice is stored
type SaveResponse struct {
	ID string `json:"id"`
}

// ListResponse is the saved invoice list
type ListResponse struct {
	Invoices []store.Summary `json:"invoices"`
}

// ResetPasswordRequest asks for a password reset link
type ResetPasswordRequest struct {
	Email string `json:"email"`
}

// TemplateRequest saves a workspace draft or a posted invoice as a template
type TemplateRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	DraftID     string         `json:"draft_id,omitempty"`
	Invoice     *model.Invoice `json:"invoice,omitempty"`
}

// TemplateListResponse is the public template list
type TemplateListResponse struct {
	Templates []store.Template `json:"templates"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string                   `json:"error"`
	Details string                   `json:"details,omitempty"`
	Fields  []*model.ValidationError `json:"fields,omitempty"`
}
