package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"lifelink/internal/adapter/repo"
	"lifelink/internal/auth"
	"lifelink/internal/domain"
	"lifelink/internal/feedback"
	"lifelink/internal/http/handlers"
	"lifelink/internal/ledger"
	"lifelink/internal/mirror"
)

type failingMirror struct{}

func (failingMirror) Mirror(context.Context, mirror.Entry) (*domain.ChainReceipt, error) {
	return nil, errors.New("gateway timeout")
}

type testServer struct {
	*httptest.Server
	ledger *repo.LedgerMemory
}

func newTestServer(t *testing.T, m mirror.Mirror) *testServer {
	t.Helper()
	return newTestServerWith(t, m, Options{RateLimitPerMin: 1000, DefaultLocale: "en"})
}

func newTestServerWith(t *testing.T, m mirror.Mirror, opts Options) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	store := repo.NewLedgerMemory()
	ledgerSvc := ledger.NewService(store, m, logger, ledger.Options{PublicBaseURL: "http://relief.test"})
	authSvc := auth.NewService(
		repo.NewUserMemory(),
		auth.NewTokens("test-secret", time.Hour),
		auth.NewPolicyStore(auth.DefaultPolicy(), logger),
		logger,
		auth.Options{AdminCode: "letmein", BcryptCost: bcrypt.MinCost},
	)
	app := handlers.NewApp(ledgerSvc, authSvc, feedback.NewService(repo.NewFeedbackMemory(), logger), logger)
	opts.Logger = logger
	srv := httptest.NewServer(NewRouter(app, opts))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, ledger: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, username, password, role string) string {
	t.Helper()
	if code, body := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": username, "password": password, "role": role}); code != http.StatusOK {
		t.Fatalf("register %s: %d %v", username, code, body)
	}
	code, body := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	if code != http.StatusOK {
		t.Fatalf("login %s: %d %v", username, code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %v", body)
	}
	return token
}

func TestDonateAndVerifyScenario(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.login(t, "ngo1", "pw", "ngo")

	code, body := srv.do(t, http.MethodPost, "/donate", token, map[string]any{"donorName": "Asha", "amount": 500, "purpose": "flood"})
	if code != http.StatusCreated {
		t.Fatalf("donate: %d %v", code, body)
	}
	record := body["record"].(map[string]any)
	details := record["details"].(map[string]any)
	if details["amount"] != float64(500) || details["donorName"] != "Asha" || details["purpose"] != "flood" {
		t.Fatalf("echoed details differ: %v", details)
	}
	if record["blockchain"] != nil {
		t.Fatalf("expected null blockchain without a mirror, got %v", record["blockchain"])
	}
	id := record["id"].(string)
	if body["verifyUrl"] != "http://relief.test/verifyRecord/"+id {
		t.Fatalf("verifyUrl = %v", body["verifyUrl"])
	}
	if qr, _ := body["qrDataUrl"].(string); !strings.HasPrefix(qr, "data:image/png;base64,") {
		t.Fatalf("qrDataUrl missing")
	}

	code, body = srv.do(t, http.MethodGet, "/verifyRecord/"+id, "", nil)
	if code != http.StatusOK {
		t.Fatalf("verify: %d %v", code, body)
	}
	data := body["data"].(map[string]any)
	if body["type"] != "donation" || data["details"].(map[string]any)["donorName"] != "Asha" || data["id"] != id {
		t.Fatalf("verify returned %v", body)
	}

	code, body = srv.do(t, http.MethodGet, "/generateQR/"+id, "", nil)
	if code != http.StatusOK || body["txHash"] != id {
		t.Fatalf("generateQR: %d %v", code, body)
	}

	if code, _ := srv.do(t, http.MethodGet, "/verifyRecord/0xnever", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown id: %d", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/generateQR/0xnever", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown qr id: %d", code)
	}
}

func TestIdentifiersAreUnique(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.login(t, "ngo1", "pw", "ngo")
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, body := srv.do(t, http.MethodPost, "/donate", token, map[string]any{"donorName": "Asha", "amount": 500, "purpose": "flood"})
		if code != http.StatusCreated {
			t.Fatalf("donate: %d", code)
		}
		id := body["record"].(map[string]any)["id"].(string)
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestRegisterConflictAndLoginFailures(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login(t, "ngo1", "pw", "ngo")

	if code, _ := srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "ngo1", "password": "x", "role": "ngo"}); code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", code)
	}
	if code, _ := srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "boss", "password": "x", "role": "admin"}); code != http.StatusForbidden {
		t.Fatalf("admin without code: %d", code)
	}
	if code, _ := srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "boss", "password": "x", "role": "admin", "adminCode": "letmein"}); code != http.StatusOK {
		t.Fatalf("admin with code: %d", code)
	}
	if code, _ := srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{"password": "x"}); code != http.StatusBadRequest {
		t.Fatalf("missing username: %d", code)
	}

	wrongCode, wrongBody := srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "ngo1", "password": "bad"})
	ghostCode, ghostBody := srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "ghost", "password": "pw"})
	if wrongCode != http.StatusUnauthorized || ghostCode != http.StatusUnauthorized {
		t.Fatalf("login failures: %d %d", wrongCode, ghostCode)
	}
	if wrongBody["error"] != ghostBody["error"] || wrongBody["message"] != ghostBody["message"] {
		t.Fatalf("login failures distinguishable: %v vs %v", wrongBody, ghostBody)
	}
}

func TestRoleGates(t *testing.T) {
	srv := newTestServer(t, nil)
	public := srv.login(t, "visitor", "pw", "public")
	auditor := srv.login(t, "aud", "pw", "auditor")
	donation := map[string]any{"donorName": "Asha", "amount": 1, "purpose": "flood"}

	if code, body := srv.do(t, http.MethodPost, "/donate", "", donation); code != http.StatusUnauthorized || body["message"] == nil {
		t.Fatalf("no token: %d %v", code, body)
	}
	if code, _ := srv.do(t, http.MethodPost, "/donate", public, donation); code != http.StatusForbidden {
		t.Fatalf("public donate: %d", code)
	}
	if code, _ := srv.do(t, http.MethodPost, "/dispatch", auditor, map[string]any{"item": "rice", "quantity": 1, "from": "a", "to": "b"}); code != http.StatusForbidden {
		t.Fatalf("auditor dispatch: %d", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/auditTrail", public, nil); code != http.StatusForbidden {
		t.Fatalf("public audit: %d", code)
	}
	for _, path := range []string{"/auditTrail", "/audit-trail"} {
		if code, body := srv.do(t, http.MethodGet, path, auditor, nil); code != http.StatusOK || body["statistics"] == nil {
			t.Fatalf("auditor %s: %d %v", path, code, body)
		}
	}
	code, body := srv.do(t, http.MethodGet, "/me", auditor, nil)
	if code != http.StatusOK || body["username"] != "aud" || body["role"] != "auditor" {
		t.Fatalf("me: %d %v", code, body)
	}
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.login(t, "ngo1", "pw", "ngo")

	cases := []struct {
		path string
		body any
	}{
		{"/donate", map[string]any{"amount": 5, "purpose": "flood"}},
		{"/donate", map[string]any{"donorName": "Asha", "amount": "abc", "purpose": "flood"}},
		{"/dispatch", map[string]any{"item": "rice", "quantity": 0, "from": "a", "to": "b"}},
		{"/dispatch", map[string]any{"item": "rice", "quantity": 2, "from": "a", "to": "b", "lat": 10}},
	}
	for _, tc := range cases {
		code, body := srv.do(t, http.MethodPost, tc.path, token, tc.body)
		if code != http.StatusBadRequest || body["error"] != "bad_request" {
			t.Fatalf("%s %v: %d %v", tc.path, tc.body, code, body)
		}
	}
	if got := len(mustDoc(t, srv).Donations); got != 0 {
		t.Fatalf("invalid requests appended %d records", got)
	}
}

func TestOverPreciseAmountIsRejectedWithOrWithoutMirror(t *testing.T) {
	for name, m := range map[string]mirror.Mirror{"no mirror": nil, "mirror": failingMirror{}} {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, m)
			token := srv.login(t, "ngo1", "pw", "ngo")

			for _, amount := range []string{"10.555", "1e9999999", "1e-9999999"} {
				code, body := srv.do(t, http.MethodPost, "/donate", token, map[string]any{
					"donorName": "Asha", "amount": json.Number(amount), "currency": "INR", "purpose": "flood",
				})
				if code != http.StatusBadRequest || body["error"] != "bad_request" {
					t.Fatalf("amount %s: %d %v", amount, code, body)
				}
			}
			if got := len(mustDoc(t, srv).Donations); got != 0 {
				t.Fatalf("rejected amounts appended %d records", got)
			}
		})
	}
}

func TestForwardedForDoesNotSplitRateLimit(t *testing.T) {
	srv := newTestServerWith(t, nil, Options{RateLimitPerMin: 2, DefaultLocale: "en"})

	var last int
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/login", strings.NewReader(`{"username":"x","password":"y"}`))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i+1))
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("rotating X-Forwarded-For escaped the limit: %d", last)
	}
}

func TestMirrorFailureReturns500AndAppendsNothing(t *testing.T) {
	srv := newTestServer(t, failingMirror{})
	token := srv.login(t, "ngo1", "pw", "ngo")

	code, body := srv.do(t, http.MethodPost, "/donate", token, map[string]any{"donorName": "Asha", "amount": 500, "purpose": "flood"})
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d %v", code, body)
	}
	if strings.Contains(body["message"].(string), "gateway timeout") {
		t.Fatalf("internal error leaked: %v", body)
	}
	if doc := mustDoc(t, srv); len(doc.Donations) != 0 {
		t.Fatalf("ledger changed after mirror failure")
	}
}

func TestStatisticsFoldAndMap(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.login(t, "ngo1", "pw", "ngo")

	for _, amount := range []float64{500, 120.5, 79.5} {
		if code, _ := srv.do(t, http.MethodPost, "/donate", token, map[string]any{"donorName": "d", "amount": amount, "purpose": "p"}); code != http.StatusCreated {
			t.Fatalf("donate %v: %d", amount, code)
		}
	}
	dispatches := []map[string]any{
		{"item": "water", "quantity": 30, "from": "Pune", "to": "Kolhapur", "lat": 16.7, "lng": 74.24},
		{"item": "rice", "quantity": 12, "from": "Pune", "to": "Sangli"},
	}
	for _, d := range dispatches {
		if code, body := srv.do(t, http.MethodPost, "/dispatch", token, d); code != http.StatusCreated {
			t.Fatalf("dispatch: %d %v", code, body)
		}
	}

	code, body := srv.do(t, http.MethodGet, "/public/stats", "", nil)
	if code != http.StatusOK {
		t.Fatalf("public stats: %d", code)
	}
	stats := body["statistics"].(map[string]any)
	if stats["totalDonations"] != float64(700) || stats["donationCount"] != float64(3) || stats["totalSupplies"] != float64(2) || stats["supplyQuantity"] != float64(42) {
		t.Fatalf("statistics differ from fold: %v", stats)
	}
	if len(body["donations"].([]any)) != 3 || len(body["supplies"].([]any)) != 2 {
		t.Fatalf("public stats collections: %v", body)
	}

	code, body = srv.do(t, http.MethodGet, "/statistics", "", nil)
	if code != http.StatusOK || body["transactionCount"] != float64(5) || body["activeSupplies"] != float64(2) || body["totalDonations"] != float64(700) {
		t.Fatalf("statistics summary: %d %v", code, body)
	}

	code, body = srv.do(t, http.MethodGet, "/map/dispatches", "", nil)
	if code != http.StatusOK || body["type"] != "FeatureCollection" {
		t.Fatalf("map: %d %v", code, body)
	}
	features := body["features"].([]any)
	if len(features) != 1 {
		t.Fatalf("expected only located dispatches, got %d", len(features))
	}
	coords := features[0].(map[string]any)["geometry"].(map[string]any)["coordinates"].([]any)
	if coords[0] != 74.24 || coords[1] != 16.7 {
		t.Fatalf("coordinates must be [lng, lat], got %v", coords)
	}
}

func TestFeedbackAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	code, body := srv.do(t, http.MethodPost, "/feedback", "", map[string]string{"name": "Ravi", "email": "ravi@example.org", "message": "thanks"})
	if code != http.StatusCreated || body["id"] == "" || body["message"] == nil {
		t.Fatalf("feedback: %d %v", code, body)
	}
	if code, _ := srv.do(t, http.MethodPost, "/feedback", "", map[string]string{"name": "Ravi", "email": "nope", "message": "x"}); code != http.StatusBadRequest {
		t.Fatalf("bad feedback: %d", code)
	}
	if code, body := srv.do(t, http.MethodGet, "/v1/healthz", "", nil); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: %d %v", code, body)
	}
	if code, body := srv.do(t, http.MethodGet, "/nope", "", nil); code != http.StatusNotFound || body["error"] != "not_found" {
		t.Fatalf("unknown route: %d %v", code, body)
	}
}

func mustDoc(t *testing.T, srv *testServer) *domain.LedgerDocument {
	t.Helper()
	doc, err := srv.ledger.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	return doc
}

func TestOpenAPIDocument(t *testing.T) {
	srv := newTestServer(t, nil)
	code, body := srv.do(t, http.MethodGet, "/v1/openapi.json", "", nil)
	if code != http.StatusOK || body["openapi"] == nil {
		t.Fatalf("openapi: %d %v", code, body)
	}
	paths := body["paths"].(map[string]any)
	for _, p := range []string{"/donate", "/dispatch", "/verifyRecord/{id}", "/map/dispatches"} {
		if _, ok := paths[p]; !ok {
			t.Fatalf("openapi document misses %s", p)
		}
	}

	resp, err := srv.Client().Get(srv.URL + "/v1/docs")
	if err != nil {
		t.Fatalf("docs: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("docs: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestOpenAPIDocumentETag(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := srv.Client().Get(srv.URL + "/v1/openapi.json")
	if err != nil {
		t.Fatalf("openapi: %v", err)
	}
	resp.Body.Close()
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/openapi.json", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("conditional openapi: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}
