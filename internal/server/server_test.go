package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rezonia/invoicer/internal/auth"
	"github.com/rezonia/invoicer/internal/export"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/raster"
	"github.com/rezonia/invoicer/internal/render"
	"github.com/rezonia/invoicer/internal/server"
	"github.com/rezonia/invoicer/internal/service"
	"github.com/rezonia/invoicer/internal/store"
	"github.com/rezonia/invoicer/internal/store/sqlite"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "invoicer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	provider := auth.NewLocal(db, auth.NewTokens("test-secret", time.Hour, "invoicer"), auth.WithBcryptCost(bcrypt.MinCost))
	return server.NewServer(
		&server.Config{Address: ":0", Debug: true, DraftTTL: time.Hour},
		server.WithAuth(provider),
		server.WithInvoices(service.NewInvoices(db)),
		server.WithTemplates(service.NewTemplates(db, nil)),
	)
}

func do(t *testing.T, srv *server.Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

// newDraft creates a draft and fills it with Scenario B values
func newDraft(t *testing.T, srv *server.Server) string {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/api/v1/drafts", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[server.DraftResponse](t, w).ID

	w = do(t, srv, http.MethodPatch, "/api/v1/drafts/"+id+"/items/0", `{"description":"Design","quantity":40,"rate":75}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, srv, http.MethodPost, "/api/v1/drafts/"+id+"/items", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, srv, http.MethodPatch, "/api/v1/drafts/"+id+"/items/1", `{"description":"Build","quantity":"20","rate":"85"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, srv, http.MethodPatch, "/api/v1/drafts/"+id, `{
		"invoice_number": "INV-001",
		"from_name": "Acme",
		"to_name": "Globex",
		"discount_type": "percentage",
		"discount_value": 10,
		"tax_rate": 8.5
	}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	return id
}

func signUp(t *testing.T, srv *server.Server, email string) string {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/api/v1/auth/signup", auth.Credentials{Email: email, Password: "hunter22"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[auth.Session](t, w).AccessToken
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	response := decode[map[string]interface{}](t, w)
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestCurrenciesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/currencies", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"USD"`)
}

func TestDraftLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id := newDraft(t, srv)

	w := do(t, srv, http.MethodGet, "/api/v1/drafts/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	draft := decode[server.DraftResponse](t, w).Invoice
	require.Len(t, draft.Items, 2)
	assert.Equal(t, "4700", draft.Subtotal.String())
	assert.Equal(t, "470", draft.DiscountAmount.String())
	assert.Equal(t, "359.55", draft.TaxAmount.String())
	assert.Equal(t, "4589.55", draft.Total.String())

	w = do(t, srv, http.MethodDelete, "/api/v1/drafts/"+id+"/items/0", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	draft = decode[server.DraftResponse](t, w).Invoice
	require.Len(t, draft.Items, 1)
	assert.Equal(t, "Build", draft.Items[0].Description)
	assert.Equal(t, "1700", draft.Subtotal.String())

	w = do(t, srv, http.MethodGet, "/api/v1/drafts/"+id+"/validate", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[server.ValidationResponse](t, w).Valid)

	w = do(t, srv, http.MethodGet, "/api/v1/drafts/"+id+"/preview", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "INV-001")

	w = do(t, srv, http.MethodPost, "/api/v1/drafts/"+id+"/export", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Invoice-INV-001.pdf")
	assert.NotEmpty(t, w.Header().Get("X-Page-Count"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = do(t, srv, http.MethodDelete, "/api/v1/drafts/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, srv, http.MethodGet, "/api/v1/drafts/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraft_BadRequests(t *testing.T) {
	srv := newTestServer(t)
	id := newDraft(t, srv)

	w := do(t, srv, http.MethodPatch, "/api/v1/drafts/"+id, "{not json", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPatch, "/api/v1/drafts/"+id+"/items/abc", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPatch, "/api/v1/drafts/missing", `{}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExport_MissingNumber(t *testing.T) {
	srv := newTestServer(t)
	id := newDraft(t, srv)
	do(t, srv, http.MethodPatch, "/api/v1/drafts/"+id, `{"invoice_number": ""}`, "")

	w := do(t, srv, http.MethodPost, "/api/v1/drafts/"+id+"/export", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[server.ErrorResponse](t, w)
	assert.Equal(t, "Please enter an invoice number before generating the PDF.", resp.Error)
}

func TestExport_Timeout(t *testing.T) {
	hung := raster.Func(func(ctx context.Context, _ *render.Document) (*raster.Raster, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	srv := server.NewServer(
		&server.Config{Debug: true, ExportTimeout: 20 * time.Millisecond},
		server.WithExporter(export.New(hung)),
	)
	id := newDraft(t, srv)

	w := do(t, srv, http.MethodPost, "/api/v1/drafts/"+id+"/export", nil, "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code, w.Body.String())
}

func TestExport_InvalidDraft(t *testing.T) {
	srv := newTestServer(t)
	id := newDraft(t, srv)
	do(t, srv, http.MethodPatch, "/api/v1/drafts/"+id, `{"currency": "XYZ"}`, "")

	w := do(t, srv, http.MethodPost, "/api/v1/drafts/"+id+"/export", nil, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[server.ErrorResponse](t, w)
	require.NotEmpty(t, resp.Fields)
	assert.Equal(t, "currency", resp.Fields[0].Field)
}

func TestCalculateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"invoice": {"currency": "USD", "items": [{"id": "a", "quantity": "1", "rate": "100", "amount": "100"}]},
		"patch": {"discount_type": "fixed", "discount_value": 150, "tax_rate": 10}
	}`
	w := do(t, srv, http.MethodPost, "/api/v1/calculate", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	inv := decode[model.Invoice](t, w)
	assert.Equal(t, "100", inv.Subtotal.String())
	assert.Equal(t, "-5", inv.TaxAmount.String())
	assert.Equal(t, "-55", inv.Total.String())

	w = do(t, srv, http.MethodPost, "/api/v1/validate", inv, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[server.ValidationResponse](t, w)
	assert.False(t, resp.Valid)
}

func TestCalculateEndpoint_StaleAmounts(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"invoice": {"currency": "USD", "items": [
			{"id": "a", "quantity": "2", "rate": "5", "amount": "0"},
			{"id": "b", "quantity": "1", "rate": "20", "amount": "7"}
		]}
	}`
	w := do(t, srv, http.MethodPost, "/api/v1/calculate", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	inv := decode[model.Invoice](t, w)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "10", inv.Items[0].Amount.String())
	assert.Equal(t, "20", inv.Items[1].Amount.String())
	assert.Equal(t, "30", inv.Subtotal.String())
	assert.Equal(t, "30", inv.Total.String())
}

func TestInvoices_RequireSession(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/invoices", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/invoices", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// anonymous drafts keep working
	w = do(t, srv, http.MethodPost, "/api/v1/drafts", nil, "")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestInvoicesLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "jane@example.com")
	draftID := newDraft(t, srv)

	w := do(t, srv, http.MethodPost, "/api/v1/invoices", server.SaveRequest{DraftID: draftID}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[server.SaveResponse](t, w).ID

	w = do(t, srv, http.MethodGet, "/api/v1/invoices", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[server.ListResponse](t, w).Invoices
	require.Len(t, list, 1)
	assert.Equal(t, "INV-001", list[0].InvoiceNumber)

	w = do(t, srv, http.MethodGet, "/api/v1/invoices/"+id, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4589.55", decode[model.Invoice](t, w).Total.String())

	w = do(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/export", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	other := signUp(t, srv, "bob@example.com")
	w = do(t, srv, http.MethodGet, "/api/v1/invoices/"+id, nil, other)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, http.MethodDelete, "/api/v1/invoices/"+id, nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, srv, http.MethodGet, "/api/v1/invoices/"+id, nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoices_SaveRequiresBody(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "jane@example.com")

	w := do(t, srv, http.MethodPost, "/api/v1/invoices", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "jane@example.com")

	w := do(t, srv, http.MethodPost, "/api/v1/auth/signup", auth.Credentials{Email: "jane@example.com", Password: "hunter22"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/auth/signin", auth.Credentials{Email: "jane@example.com", Password: "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/auth/session", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[auth.Session](t, w)
	assert.Equal(t, "jane@example.com", session.Email)
	assert.Empty(t, session.AccessToken)

	w = do(t, srv, http.MethodPost, "/api/v1/auth/signout", nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/auth/session", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDisabledBackends(t *testing.T) {
	srv := server.NewServer(&server.Config{Debug: true})

	w := do(t, srv, http.MethodPost, "/api/v1/auth/signin", auth.Credentials{Email: "a@b.co", Password: "secret1"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "not available"))

	w = do(t, srv, http.MethodGet, "/api/v1/templates", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = do(t, srv, http.MethodPost, "/api/v1/auth/reset-password", server.ResetPasswordRequest{Email: "a@b.co"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTemplatesLifecycle(t *testing.T) {
	srv := newTestServer(t)
	draftID := newDraft(t, srv)

	w := do(t, srv, http.MethodGet, "/api/v1/templates", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[server.TemplateListResponse](t, w).Templates)

	w = do(t, srv, http.MethodPost, "/api/v1/templates", server.TemplateRequest{Name: "Consulting", DraftID: draftID}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := signUp(t, srv, "jane@example.com")
	w = do(t, srv, http.MethodPost, "/api/v1/templates", server.TemplateRequest{DraftID: draftID}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, srv, http.MethodPost, "/api/v1/templates", server.TemplateRequest{Name: "Consulting"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/templates",
		server.TemplateRequest{Name: "Consulting", Description: "Design and build", DraftID: draftID}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saved := decode[store.Template](t, w)
	assert.True(t, saved.IsPublic)

	// listing needs no session
	w = do(t, srv, http.MethodGet, "/api/v1/templates", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[server.TemplateListResponse](t, w).Templates
	require.Len(t, list, 1)
	assert.Equal(t, "Consulting", list[0].Name)
	assert.Equal(t, "4589.55", list[0].Data.Total.String())

	w = do(t, srv, http.MethodGet, "/api/v1/templates/"+saved.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Design and build", decode[store.Template](t, w).Description)

	w = do(t, srv, http.MethodPost, "/api/v1/templates/"+saved.ID+"/drafts", nil, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draft := decode[server.DraftResponse](t, w)
	assert.NotEqual(t, draftID, draft.ID)
	assert.Empty(t, draft.Invoice.Number)
	assert.Equal(t, "4589.55", draft.Invoice.Total.String())

	w = do(t, srv, http.MethodGet, "/api/v1/drafts/"+draft.ID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/templates/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, srv, http.MethodPost, "/api/v1/templates/missing/drafts", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type resetRecorder struct {
	auth.Provider
	email, redirect string
}

func (r *resetRecorder) ResetPassword(_ context.Context, email, redirectTo string) error {
	r.email, r.redirect = email, redirectTo
	return nil
}

func TestResetPassword(t *testing.T) {
	t.Run("local accounts cannot reset", func(t *testing.T) {
		srv := newTestServer(t)
		w := do(t, srv, http.MethodPost, "/api/v1/auth/reset-password", server.ResetPasswordRequest{Email: "jane@example.com"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "not available")
	})

	t.Run("malformed email", func(t *testing.T) {
		srv := newTestServer(t)
		w := do(t, srv, http.MethodPost, "/api/v1/auth/reset-password", server.ResetPasswordRequest{Email: "nope"}, "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	tests := []struct {
		name         string
		configured   string
		origin       string
		wantRedirect string
	}{
		{name: "configured url", configured: "https://app.example.com/reset", origin: "https://other.example.com", wantRedirect: "https://app.example.com/reset"},
		{name: "request origin", origin: "https://app.example.com/", wantRedirect: "https://app.example.com/auth/reset-password"},
		{name: "request host", wantRedirect: "http://example.com/auth/reset-password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &resetRecorder{}
			srv := server.NewServer(&server.Config{Debug: true, ResetRedirectURL: tt.configured}, server.WithAuth(p))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/reset-password", strings.NewReader(`{"email":"Jane@Example.com"}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
			assert.Equal(t, "jane@example.com", p.email)
			assert.Equal(t, tt.wantRedirect, p.redirect)
		})
	}
}
