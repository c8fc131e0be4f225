package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/invoicer/internal/auth"
	"github.com/rezonia/invoicer/internal/currency"
	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/logger"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/store"
)

// Templates lists public invoice templates and saves new ones
type Templates struct {
	repo   store.Templates
	logger *logger.Logger
	now    func() time.Time
	newID  func() string
}

// NewTemplates creates the service over repo. A nil logger discards output.
func NewTemplates(repo store.Templates, l *logger.Logger) *Templates {
	if l == nil {
		l = logger.NewNop()
	}
	return &Templates{repo: repo, logger: l, now: time.Now, newID: uuid.NewString}
}

// List returns the public templates, newest first
func (s *Templates) List(ctx context.Context) ([]store.Template, error) {
	return s.repo.ListTemplates(ctx)
}

// Get loads one template
func (s *Templates) Get(ctx context.Context, id string) (store.Template, error) {
	return s.repo.GetTemplate(ctx, id)
}

// Save stores inv as a public template. Saving needs a signed-in user.
func (s *Templates) Save(ctx context.Context, name, description string, inv model.Invoice) (store.Template, error) {
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return store.Template{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Template{}, model.NewPreconditionError("name", "is required",
			"Please enter a template name before saving.")
	}

	t, err := s.repo.SaveTemplate(ctx, store.Template{
		Name:        name,
		Description: strings.TrimSpace(description),
		Data:        engine.Recompute(inv, nil),
		IsPublic:    true,
	})
	if err != nil {
		s.logger.Errorw("failed to save template", "user_id", session.UserID, "name", name, "error", err)
		return store.Template{}, err
	}
	s.logger.Infow("template saved", "user_id", session.UserID, "template_id", t.ID, "name", name)
	return t, nil
}

// NewDraft starts a draft from template id. The draft is dated today, gets
// fresh item ids and carries no invoice number.
func (s *Templates) NewDraft(ctx context.Context, id string) (model.Invoice, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return model.Invoice{}, err
	}
	return FromTemplate(t.Data, s.now(), s.newID), nil
}

// FromTemplate copies data into a fresh draft dated now
func FromTemplate(data model.Invoice, now time.Time, newID func() string) model.Invoice {
	draft := data.Clone()
	draft.Number = ""
	draft.Date = now.Format(model.DateLayout)
	draft.DueDate = now.AddDate(0, 0, model.DefaultPaymentDays).Format(model.DateLayout)
	for i := range draft.Items {
		draft.Items[i].ID = newID()
	}
	if len(draft.Items) == 0 {
		draft.Items = []model.Item{model.NewItem(newID())}
	}
	if draft.Currency == "" {
		draft.Currency = currency.Default
	}
	return engine.Recompute(draft, nil)
}
