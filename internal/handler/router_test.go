package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hafizbahtiar/console/internal/client"
	"github.com/hafizbahtiar/console/internal/config"
	"github.com/hafizbahtiar/console/internal/tokens"
)

func newTestRouter(t *testing.T, upstream string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testGuardConfig()
	cfg.Upstream = upstream
	cfg.AllowedOrigins = []string{"http://localhost:3001"}

	r, err := NewRouter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return r
}

func TestRouterProxiesGuardedPages(t *testing.T) {
	var gotRequestID string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(client.HeaderRequestID)
		_, _ = w.Write([]byte("frontend " + r.URL.Path))
	}))
	t.Cleanup(upstream.Close)

	r := newTestRouter(t, upstream.URL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/about", nil))
	if w.Code != http.StatusOK || w.Body.String() != "frontend /about" {
		t.Fatalf("unexpected proxy response %d %q", w.Code, w.Body.String())
	}
	if gotRequestID == "" {
		t.Fatalf("expected request id to be forwarded")
	}
	if w.Header().Get(client.HeaderRequestID) == "" {
		t.Fatalf("expected request id on response")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("expected guard redirect, got %d", w.Code)
	}
}

func TestRouterUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstream.Close()

	r := newTestRouter(t, upstream.URL)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestNewRouterRejectsBadUpstream(t *testing.T) {
	_, err := NewRouter(config.GuardConfig{Upstream: "localhost"}, slog.Default())
	if err == nil {
		t.Fatalf("expected error for upstream without scheme")
	}
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t, "http://127.0.0.1:1")

	for _, path := range []string{"/ping", "/healthz"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodOptions, "/_session", nil)
	req.Header.Set("Origin", "http://localhost:3001")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3001" {
		t.Fatalf("missing allow-origin header")
	}

	req = httptest.NewRequest(http.MethodOptions, "/_session", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow-origin for unknown origin")
	}
}

func TestSessionCookies(t *testing.T) {
	r := newTestRouter(t, "http://127.0.0.1:1")
	access := signToken(t, "owner", time.Now().Add(time.Hour))

	body, _ := json.Marshal(map[string]string{"accessToken": access, "refreshToken": "refresh-1"})
	req := httptest.NewRequest(http.MethodPost, "/_session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	cookies := map[string]*http.Cookie{}
	for _, ck := range w.Result().Cookies() {
		cookies[ck.Name] = ck
	}
	if cookies[tokens.AccessTokenKey] == nil || cookies[tokens.AccessTokenKey].Value != access {
		t.Fatalf("access cookie not set")
	}
	if !cookies[tokens.RefreshTokenKey].HttpOnly {
		t.Fatalf("refresh cookie must be http-only")
	}

	var st sessionStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !st.HasToken || st.Role != "owner" || st.ExpiresAt == nil {
		t.Fatalf("unexpected status %+v", st)
	}

	t.Run("half pair rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/_session", strings.NewReader(`{"accessToken":"a"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("non-json content type rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/_session", bytes.NewReader(body))
		req.Header.Set("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("expected 415, got %d", w.Code)
		}
		if len(w.Result().Cookies()) != 0 {
			t.Fatalf("cookies set on rejected request")
		}
	})

	t.Run("foreign origin rejected", func(t *testing.T) {
		for _, ct := range []string{"application/json", "text/plain"} {
			req := httptest.NewRequest(http.MethodPost, "/_session", bytes.NewReader(body))
			req.Header.Set("Content-Type", ct)
			req.Header.Set("Origin", "https://evil.example")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusForbidden {
				t.Fatalf("%s: expected 403, got %d", ct, w.Code)
			}
			if len(w.Result().Cookies()) != 0 {
				t.Fatalf("%s: cookies set on rejected request", ct)
			}
		}
	})

	t.Run("allowed and same origin accepted", func(t *testing.T) {
		for _, origin := range []string{"http://localhost:3001", "http://example.com"} {
			req := httptest.NewRequest(http.MethodPost, "/_session", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
			req.Header.Set("Origin", origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("%s: expected 200, got %d: %s", origin, w.Code, w.Body.String())
			}
		}
	})

	t.Run("status without cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/_session", nil))
		if strings.TrimSpace(w.Body.String()) != `{"hasToken":false}` {
			t.Fatalf("unexpected status body %s", w.Body.String())
		}
	})

	t.Run("clear expires cookies", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/_session", nil))
		for _, ck := range w.Result().Cookies() {
			if ck.MaxAge >= 0 {
				t.Fatalf("cookie %s not expired", ck.Name)
			}
		}
	})
}
