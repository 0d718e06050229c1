package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lifelink/internal/auth"
	"lifelink/internal/domain"
)

func TestRequireAuthAndAction(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	policy := auth.NewPolicyStore(auth.DefaultPolicy(), zerolog.Nop())
	svc := auth.NewService(nil, tokens, policy, zerolog.Nop(), auth.Options{})

	ngoToken, err := tokens.Issue(&domain.User{Username: "ngo1", Role: domain.UserRoleNGO})
	if err != nil {
		t.Fatal(err)
	}
	publicToken, err := tokens.Issue(&domain.User{Username: "p", Role: domain.UserRolePublic})
	if err != nil {
		t.Fatal(err)
	}

	var seen string
	h := RequireAuth(svc)(RequireAction(svc, auth.ActionDonate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := ClaimsFromContext(r.Context())
		seen = c.Username
		w.WriteHeader(http.StatusCreated)
	})))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"role not allowed", "Bearer " + publicToken, http.StatusForbidden},
		{"allowed", "Bearer " + ngoToken, http.StatusCreated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/donate", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want >= 400 {
				var body errorBody
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Message == "" {
					t.Fatalf("expected json error body, got %q", rec.Body.String())
				}
			}
		})
	}
	if seen != "ngo1" {
		t.Fatalf("claims not propagated, got %q", seen)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got != "abc-123" || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("request id not propagated: ctx=%q header=%q", got, rec.Header().Get("X-Request-ID"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rid := rec.Header().Get("X-Request-ID"); len(rid) != 36 {
		t.Fatalf("overlong request id should be replaced, got %q", rid)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://relief.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/donate", nil)
	req.Header.Set("Origin", "https://relief.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://relief.example" {
		t.Fatalf("preflight: %d %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/public/stats", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unlisted origin allowed")
	}
}
