// Package analytics records product events. Tracking is best effort: a
// failure is logged and never reaches the operation that caused the event.
package analytics

import (
	"context"
	"time"

	"github.com/rezonia/invoicer/internal/logger"
)

// EventType names a tracked event
type EventType string

const (
	EventPDFGenerated     EventType = "pdf_generated"
	EventSignatureCreated EventType = "signature_created"
	EventInvoiceCreated   EventType = "invoice_created"
)

// Event is one analytics record
type Event struct {
	Type      EventType      `json:"event_type"`
	UserID    string         `json:"user_id,omitempty"`
	Data      map[string]any `json:"event_data,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Tracker accepts events without reporting failure
type Tracker interface {
	Track(ctx context.Context, event Event)
}

// Recorder persists events; implemented by the store backends
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Client metadata carried in the context by the HTTP layer
type clientKey struct{}

// Client describes the caller of an operation
type Client struct {
	UserAgent string
	IPAddress string
}

// WithClient attaches caller metadata to ctx
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFrom returns the caller metadata in ctx, if any
func ClientFrom(ctx context.Context) (Client, bool) {
	c, ok := ctx.Value(clientKey{}).(Client)
	return c, ok
}

type tracker struct {
	recorder Recorder
	logger   *logger.Logger
	now      func() time.Time
}

// New returns a tracker that writes through recorder. A nil recorder only
// logs events.
func New(recorder Recorder, log *logger.Logger) Tracker {
	if log == nil {
		log = logger.NewNop()
	}
	return &tracker{recorder: recorder, logger: log, now: time.Now}
}

func (t *tracker) Track(ctx context.Context, event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = t.now().UTC()
	}
	if c, ok := ClientFrom(ctx); ok {
		if event.UserAgent == "" {
			event.UserAgent = c.UserAgent
		}
		if event.IPAddress == "" {
			event.IPAddress = c.IPAddress
		}
	}

	if t.recorder == nil {
		t.logger.Debugw("analytics event", "event_type", event.Type, "data", event.Data)
		return
	}
	if err := t.recorder.Record(ctx, event); err != nil {
		t.logger.Warnw("failed to record analytics event", "event_type", event.Type, "error", err)
	}
}

// Nop discards every event
type Nop struct{}

func (Nop) Track(context.Context, Event) {}

// PDFGenerated builds the event sent after a successful export
func PDFGenerated(userID, invoiceNumber string) Event {
	return Event{
		Type:   EventPDFGenerated,
		UserID: userID,
		Data:   map[string]any{"invoice_number": invoiceNumber},
	}
}

// SignatureCreated builds the event sent when a signature image is set
func SignatureCreated(userID string) Event {
	return Event{Type: EventSignatureCreated, UserID: userID}
}

// InvoiceCreated builds the event sent after an invoice is saved
func InvoiceCreated(userID, invoiceID, invoiceNumber string) Event {
	return Event{
		Type:   EventInvoiceCreated,
		UserID: userID,
		Data:   map[string]any{"invoice_id": invoiceID, "invoice_number": invoiceNumber},
	}
}
