// Package supabase stores invoices in the Supabase invoices table through
// PostgREST. Every query is scoped by user_id.
package supabase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/nedpals/supabase-go"

	"github.com/rezonia/invoicer/internal/analytics"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/store"
)

const (
	invoicesTable  = "invoices"
	analyticsTable = "analytics"
)

// Store is a Gateway over a Supabase project
type Store struct {
	client *supabase.Client
	now    func() time.Time
	newID  func() string
}

var (
	_ store.Gateway      = (*Store)(nil)
	_ analytics.Recorder = (*Store)(nil)
)

// New wraps client
func New(client *supabase.Client) *Store {
	return &Store{client: client, now: time.Now, newID: uuid.NewString}
}

// Save inserts a copy of inv owned by ownerID
func (s *Store) Save(ctx context.Context, ownerID string, inv model.Invoice) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(ownerID) == "" {
		return "", model.Unauthorized("owner is required")
	}

	row := store.RowFromInvoice(ownerID, inv)
	row.ID = s.newID()
	now := s.now().UTC()
	row.CreatedAt = &now
	row.UpdatedAt = &now

	var inserted []store.Row
	if err := s.client.DB.From(invoicesTable).Insert(row).Execute(&inserted); err != nil {
		return "", model.NewExternalError("save invoice", "insert failed", err)
	}
	if len(inserted) > 0 && inserted[0].ID != "" {
		return inserted[0].ID, nil
	}
	return row.ID, nil
}

// List returns the owner's invoices that are not deleted, newest first
func (s *Store) List(ctx context.Context, ownerID string) ([]store.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []store.Row
	err := s.client.DB.From(invoicesTable).
		Select("id", "invoice_number", "date", "due_date", "to_name", "currency", "total", "created_at").
		Eq("user_id", ownerID).
		Eq("is_deleted", "false").
		Execute(&rows)
	if err != nil {
		return nil, model.NewExternalError("list invoices", "query failed", err)
	}

	summaries := make([]store.Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, r.Summary())
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// Get loads one invoice owned by ownerID
func (s *Store) Get(ctx context.Context, ownerID, id string) (model.Invoice, error) {
	row, err := s.find(ctx, ownerID, id, "*")
	if err != nil {
		return model.Invoice{}, err
	}
	return row.Invoice(), nil
}

// SoftDelete marks an invoice deleted
func (s *Store) SoftDelete(ctx context.Context, ownerID, id string) error {
	if _, err := s.find(ctx, ownerID, id, "id"); err != nil {
		return err
	}

	patch := map[string]any{
		"is_deleted": true,
		"updated_at": s.now().UTC(),
	}
	var updated []store.Row
	err := s.client.DB.From(invoicesTable).
		Update(patch).
		Eq("id", id).
		Eq("user_id", ownerID).
		Execute(&updated)
	if err != nil {
		return model.NewExternalError("delete invoice", "update failed", err)
	}
	return nil
}

func (s *Store) find(ctx context.Context, ownerID, id, columns string) (store.Row, error) {
	if err := ctx.Err(); err != nil {
		return store.Row{}, err
	}

	var rows []store.Row
	err := s.client.DB.From(invoicesTable).
		Select(columns).
		Eq("id", id).
		Eq("user_id", ownerID).
		Eq("is_deleted", "false").
		Execute(&rows)
	if err != nil {
		return store.Row{}, model.NewExternalError("get invoice", "query failed", err)
	}
	if len(rows) == 0 {
		return store.Row{}, model.NotFound("invoice", id)
	}
	return rows[0], nil
}

type eventRow struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	UserAgent string         `json:"user_agent,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Record inserts an analytics row. The user id travels inside event_data.
func (s *Store) Record(ctx context.Context, e analytics.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	if e.UserID != "" {
		data["user_id"] = e.UserID
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	var inserted []eventRow
	err := s.client.DB.From(analyticsTable).Insert(eventRow{
		EventType: string(e.Type),
		EventData: data,
		UserAgent: e.UserAgent,
		IPAddress: e.IPAddress,
		CreatedAt: createdAt.UTC(),
	}).Execute(&inserted)
	if err != nil {
		return errors.Wrap(err, "record event")
	}
	return nil
}
