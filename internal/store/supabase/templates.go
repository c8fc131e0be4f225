package supabase

import (
	"context"
	"sort"

	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/store"
)

const templatesTable = "invoice_templates"

var _ store.Templates = (*Store)(nil)

// SaveTemplate inserts t into invoice_templates
func (s *Store) SaveTemplate(ctx context.Context, t store.Template) (store.Template, error) {
	if err := ctx.Err(); err != nil {
		return store.Template{}, err
	}

	t.ID = s.newID()
	now := s.now().UTC()
	t.CreatedAt = &now
	t.UpdatedAt = &now

	var inserted []store.Template
	if err := s.client.DB.From(templatesTable).Insert(t).Execute(&inserted); err != nil {
		return store.Template{}, model.NewExternalError("save template", "insert failed", err)
	}
	if len(inserted) > 0 && inserted[0].ID != "" {
		return inserted[0], nil
	}
	return t, nil
}

// ListTemplates returns public templates, newest first
func (s *Store) ListTemplates(ctx context.Context) ([]store.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []store.Template
	err := s.client.DB.From(templatesTable).
		Select("*").
		Eq("is_public", "true").
		Execute(&rows)
	if err != nil {
		return nil, model.NewExternalError("list templates", "query failed", err)
	}
	if rows == nil {
		rows = []store.Template{}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return createdAt(rows[i]) > createdAt(rows[j])
	})
	return rows, nil
}

// GetTemplate loads one template by id
func (s *Store) GetTemplate(ctx context.Context, id string) (store.Template, error) {
	if err := ctx.Err(); err != nil {
		return store.Template{}, err
	}

	var rows []store.Template
	err := s.client.DB.From(templatesTable).
		Select("*").
		Eq("id", id).
		Execute(&rows)
	if err != nil {
		return store.Template{}, model.NewExternalError("get template", "query failed", err)
	}
	if len(rows) == 0 {
		return store.Template{}, model.NotFound("template", id)
	}
	return rows[0], nil
}

func createdAt(t store.Template) int64 {
	if t.CreatedAt == nil {
		return 0
	}
	return t.CreatedAt.UnixNano()
}
