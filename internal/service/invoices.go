// Package service ties the invoice operations that need a signed-in user to
// the persistence gateway.
package service

import (
	"context"
	"strings"

	"github.com/rezonia/invoicer/internal/analytics"
	"github.com/rezonia/invoicer/internal/auth"
	"github.com/rezonia/invoicer/internal/logger"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/store"
	"github.com/rezonia/invoicer/internal/validation"
)

// Invoices saves, lists, loads and deletes the session user's invoices
type Invoices struct {
	gateway   store.Gateway
	validator *validation.Validator
	tracker   analytics.Tracker
	logger    *logger.Logger
}

// Option configures Invoices
type Option func(*Invoices)

// WithTracker sets the analytics tracker
func WithTracker(t analytics.Tracker) Option {
	return func(s *Invoices) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Invoices) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewInvoices creates the service over gateway
func NewInvoices(gateway store.Gateway, opts ...Option) *Invoices {
	s := &Invoices{
		gateway:   gateway,
		validator: validation.New(),
		tracker:   analytics.Nop{},
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save validates inv and stores a copy for the session user
func (s *Invoices) Save(ctx context.Context, inv model.Invoice) (string, error) {
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(inv.Number) == "" {
		return "", model.NewPreconditionError("invoice_number", "is required",
			"Please enter an invoice number before saving.")
	}
	if err := s.validator.Validate(inv).Err(); err != nil {
		return "", err
	}

	id, err := s.gateway.Save(ctx, session.UserID, inv.Clone())
	if err != nil {
		s.logger.Errorw("failed to save invoice", "user_id", session.UserID, "invoice_number", inv.Number, "error", err)
		return "", err
	}

	s.tracker.Track(ctx, analytics.InvoiceCreated(session.UserID, id, inv.Number))
	if inv.Signature != nil && inv.Signature.Image != "" {
		s.tracker.Track(ctx, analytics.SignatureCreated(session.UserID))
	}
	s.logger.Infow("invoice saved", "user_id", session.UserID, "invoice_id", id, "invoice_number", inv.Number)
	return id, nil
}

// List returns the session user's invoices, newest first
func (s *Invoices) List(ctx context.Context) ([]store.Summary, error) {
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.gateway.List(ctx, session.UserID)
}

// Get loads one of the session user's invoices
func (s *Invoices) Get(ctx context.Context, id string) (model.Invoice, error) {
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return model.Invoice{}, err
	}
	return s.gateway.Get(ctx, session.UserID, id)
}

// Delete soft deletes one of the session user's invoices
func (s *Invoices) Delete(ctx context.Context, id string) error {
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := s.gateway.SoftDelete(ctx, session.UserID, id); err != nil {
		return err
	}
	s.logger.Infow("invoice deleted", "user_id", session.UserID, "invoice_id", id)
	return nil
}
