package store

import (
	"context"
	"time"

	"github.com/rezonia/invoicer/internal/model"
)

// Template is a reusable invoice layout. Saved templates are public.
type Template struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Data        model.Invoice `json:"template_data"`
	IsPublic    bool          `json:"is_public"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty"`
}

// Templates stores invoice templates. ListTemplates returns public
// templates only, newest first.
type Templates interface {
	SaveTemplate(ctx context.Context, t Template) (Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	GetTemplate(ctx context.Context, id string) (Template, error)
}
