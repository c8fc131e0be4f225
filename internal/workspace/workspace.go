// Package workspace holds drafts between requests. Each draft has a single
// writer at a time; readers get copies.
package workspace

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/rezonia/invoicer/internal/model"
)

// DefaultTTL is how long an untouched draft is kept
const DefaultTTL = 24 * time.Hour

type entry struct {
	mu    sync.Mutex
	draft model.Invoice
}

// Workspace is an expiring set of drafts keyed by id
type Workspace struct {
	drafts *cache.Cache
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// New creates a workspace. ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration) *Workspace {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Workspace{
		drafts: cache.New(ttl, ttl/2),
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create stores a fresh draft and returns its key
func (w *Workspace) Create() (string, model.Invoice) {
	key := w.newID()
	draft := model.NewDraft(w.now(), uuid.NewString())
	w.drafts.Set(key, &entry{draft: draft}, w.ttl)
	return key, draft.Clone()
}

// Put stores draft under a new key
func (w *Workspace) Put(draft model.Invoice) string {
	key := w.newID()
	w.drafts.Set(key, &entry{draft: draft.Clone()}, w.ttl)
	return key
}

// Get returns a copy of the draft at key
func (w *Workspace) Get(key string) (model.Invoice, error) {
	e, err := w.entry(key)
	if err != nil {
		return model.Invoice{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone(), nil
}

// Apply replaces the draft at key with fn's result. Calls for the same key
// are serialized; fn always sees the result of the previous call.
func (w *Workspace) Apply(key string, fn func(model.Invoice) model.Invoice) (model.Invoice, error) {
	e, err := w.entry(key)
	if err != nil {
		return model.Invoice{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = fn(e.draft.Clone())
	w.drafts.Set(key, e, w.ttl)
	return e.draft.Clone(), nil
}

// Delete drops the draft at key
func (w *Workspace) Delete(key string) {
	w.drafts.Delete(key)
}

// Len is the number of drafts held, including expired ones not yet evicted
func (w *Workspace) Len() int {
	return w.drafts.ItemCount()
}

func (w *Workspace) entry(key string) (*entry, error) {
	v, ok := w.drafts.Get(key)
	if !ok {
		return nil, model.NotFound("draft", key)
	}
	return v.(*entry), nil
}
