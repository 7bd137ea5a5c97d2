package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pitabwire/loom/internal/config"
	"github.com/pitabwire/loom/model"
)

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("no correlation ID in context")
	}
	if got := rec.Header().Get("X-Correlation-Id"); got != seen {
		t.Errorf("response header = %q, context = %q", got, seen)
	}
}

func TestRequestIDHonorsInboundHeader(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if got := CorrelationIDFrom(r.Context()); got != "client-supplied" {
			t.Errorf("correlation ID = %q", got)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-Id", "client-supplied")
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestBuildRequestContextFromClaims(t *testing.T) {
	var rctx *model.RequestContext
	handler := BuildRequestContext(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		rctx = model.MustRequestContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-GB")
	req = req.WithContext(WithClaims(req.Context(), map[string]any{
		"sub":   "user-123",
		"email": "user@example.com",
		"roles": []any{"admin", "editor"},
	}))

	handler.ServeHTTP(httptest.NewRecorder(), req)

	if rctx.SubjectID != "user-123" || rctx.Email != "user@example.com" {
		t.Errorf("rctx = %+v", rctx)
	}
	if len(rctx.Roles) != 2 || rctx.Roles[0] != "admin" {
		t.Errorf("roles = %v", rctx.Roles)
	}
	if rctx.Locale != "en-GB" {
		t.Errorf("locale = %q", rctx.Locale)
	}
}

func TestRecoveryTurnsPanicsInto500(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("handler exploded")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	got := decodeErrorBody(t, rec)
	if got.Code != model.ErrInternalError {
		t.Errorf("code = %q", got.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestCORS(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         3600,
	}
	handler := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q", got)
	}

	// Unlisted origins get no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q for unlisted origin", got)
	}

	// Preflight requests short-circuit.
	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}
