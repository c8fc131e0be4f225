package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/store"
)

var _ store.Templates = (*Store)(nil)

// SaveTemplate inserts t with a fresh id and timestamps
func (s *Store) SaveTemplate(ctx context.Context, t store.Template) (store.Template, error) {
	if err := ctx.Err(); err != nil {
		return store.Template{}, err
	}
	data, err := json.Marshal(t.Data)
	if err != nil {
		return store.Template{}, errors.Wrap(err, "encode template data")
	}
	var description sql.NullString
	if t.Description != "" {
		description = sql.NullString{String: t.Description, Valid: true}
	}

	t.ID = s.newID()
	now := s.now().UTC()
	t.CreatedAt = &now
	t.UpdatedAt = &now
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO invoice_templates (id, name, description, template_data, is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, description, string(data), t.IsPublic, toMillis(now), toMillis(now),
	)
	if err != nil {
		return store.Template{}, model.NewExternalError("save template", "insert failed", err)
	}
	return t, nil
}

// ListTemplates returns public templates, newest first
func (s *Store) ListTemplates(ctx context.Context) ([]store.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, description, template_data, is_public, created_at, updated_at
		 FROM invoice_templates
		 WHERE is_public = 1
		 ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, model.NewExternalError("list templates", "query failed", err)
	}
	defer rows.Close()

	templates := []store.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewExternalError("list templates", "iteration failed", err)
	}
	return templates, nil
}

// GetTemplate loads one template by id
func (s *Store) GetTemplate(ctx context.Context, id string) (store.Template, error) {
	if err := ctx.Err(); err != nil {
		return store.Template{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, description, template_data, is_public, created_at, updated_at
		 FROM invoice_templates
		 WHERE id = ?`,
		id,
	)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Template{}, model.NotFound("template", id)
	}
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (store.Template, error) {
	var (
		t                    store.Template
		description          sql.NullString
		data                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&t.ID, &t.Name, &description, &data, &t.IsPublic, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Template{}, err
	}
	if err != nil {
		return store.Template{}, model.NewExternalError("get template", "scan failed", err)
	}
	if err := json.Unmarshal([]byte(data), &t.Data); err != nil {
		return store.Template{}, errors.Wrap(err, "decode template data")
	}
	t.Description = description.String
	created, updated := fromMillis(createdAt), fromMillis(updatedAt)
	t.CreatedAt = &created
	t.UpdatedAt = &updated
	return t, nil
}
