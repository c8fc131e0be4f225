package supabase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	supa "github.com/nedpals/supabase-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoicer/internal/analytics"
	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/store"
	"github.com/rezonia/invoicer/internal/store/supabase"
)

// fakeREST is a tiny PostgREST stand-in supporting eq filters
type fakeREST struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
}

func newFakeREST() *fakeREST {
	return &fakeREST{tables: map[string][]map[string]any{}}
}

func (f *fakeREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodPost:
		var body any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var rows []map[string]any
		switch b := body.(type) {
		case map[string]any:
			rows = append(rows, b)
		case []any:
			for _, elem := range b {
				rows = append(rows, elem.(map[string]any))
			}
		}
		f.tables[table] = append(f.tables[table], rows...)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rows)
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(f.match(table, r))
	case http.MethodPatch:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		matched := f.match(table, r)
		for _, row := range matched {
			for k, v := range patch {
				row[k] = v
			}
		}
		_ = json.NewEncoder(w).Encode(matched)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeREST) match(table string, r *http.Request) []map[string]any {
	out := []map[string]any{}
	for _, row := range f.tables[table] {
		ok := true
		for col, values := range r.URL.Query() {
			want, isEq := strings.CutPrefix(values[0], "eq.")
			if !isEq {
				continue
			}
			if stringify(row[col]) != want {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "true"
		}
		return "false"
	case string:
		return x
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func (f *fakeREST) rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.tables[table]...)
}

func setup(t *testing.T) (*supabase.Store, *fakeREST) {
	t.Helper()
	fake := newFakeREST()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return supabase.New(supa.CreateClient(srv.URL, "anon-key")), fake
}

func sampleInvoice(number string) model.Invoice {
	inv := model.NewDraft(time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC), "item-1")
	inv = engine.UpdateItem(inv, 0, engine.Patch{"description": "Design", "quantity": 40, "rate": 75})
	return engine.Recompute(inv, engine.Patch{
		"invoice_number": number,
		"to_name":        "Globex",
		"tax_rate":       "8.5",
	})
}

func TestSaveGet(t *testing.T) {
	s, fake := setup(t)
	ctx := context.Background()
	inv := sampleInvoice("INV-001")

	id, err := s.Save(ctx, "user-1", inv)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	rows := fake.rows("invoices")
	require.Len(t, rows, 1)
	assert.Equal(t, "user-1", rows[0]["user_id"])
	assert.Equal(t, false, rows[0]["is_deleted"])

	got, err := s.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, "INV-001", got.Number)
	assert.True(t, got.Total.Equal(inv.Total), "total %s", got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Design", got.Items[0].Description)

	_, err = s.Get(ctx, "user-2", id)
	assert.True(t, model.IsNotFound(err))
}

func TestSave_RequiresOwner(t *testing.T) {
	s, _ := setup(t)
	_, err := s.Save(context.Background(), " ", sampleInvoice("INV-1"))
	assert.True(t, model.IsUnauthorized(err))
}

func TestListAndSoftDelete(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "user-1", sampleInvoice("INV-1"))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = s.Save(ctx, "user-1", sampleInvoice("INV-2"))
	require.NoError(t, err)
	_, err = s.Save(ctx, "user-2", sampleInvoice("OTHER"))
	require.NoError(t, err)

	list, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "INV-2", list[0].InvoiceNumber)
	assert.Equal(t, "INV-1", list[1].InvoiceNumber)

	require.NoError(t, s.SoftDelete(ctx, "user-1", first))
	assert.True(t, model.IsNotFound(s.SoftDelete(ctx, "user-1", first)))
	assert.True(t, model.IsNotFound(s.SoftDelete(ctx, "user-2", "missing")))

	list, err = s.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "INV-2", list[0].InvoiceNumber)
}

func TestRecord(t *testing.T) {
	s, fake := setup(t)
	ctx := analytics.WithClient(context.Background(), analytics.Client{UserAgent: "test-agent", IPAddress: "10.0.0.1"})

	analytics.New(s, nil).Track(ctx, analytics.PDFGenerated("user-1", "INV-1"))

	rows := fake.rows("analytics")
	require.Len(t, rows, 1)
	assert.Equal(t, "pdf_generated", rows[0]["event_type"])
	assert.Equal(t, "test-agent", rows[0]["user_agent"])
	assert.Equal(t, "10.0.0.1", rows[0]["ip_address"])
	data, ok := rows[0]["event_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user-1", data["user_id"])
	assert.Equal(t, "INV-1", data["invoice_number"])
}

func TestTemplates(t *testing.T) {
	s, fake := setup(t)
	ctx := context.Background()

	first, err := s.SaveTemplate(ctx, store.Template{Name: "Consulting", Data: sampleInvoice("INV-1"), IsPublic: true})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := s.SaveTemplate(ctx, store.Template{Name: "Design", Description: "Hourly", Data: sampleInvoice("INV-2"), IsPublic: true})
	require.NoError(t, err)
	_, err = s.SaveTemplate(ctx, store.Template{Name: "Private", Data: sampleInvoice("INV-3")})
	require.NoError(t, err)

	rows := fake.rows("invoice_templates")
	require.Len(t, rows, 3)
	assert.Equal(t, true, rows[0]["is_public"])
	assert.Contains(t, rows[0], "template_data")

	list, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "Hourly", list[0].Description)

	got, err := s.GetTemplate(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", got.Data.Number)
	assert.True(t, got.Data.Total.Equal(sampleInvoice("INV-1").Total))

	_, err = s.GetTemplate(ctx, "missing")
	assert.True(t, model.IsNotFound(err))
}
