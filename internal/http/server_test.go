package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"mamon/internal/auth"
	"mamon/internal/core"
	"mamon/internal/live"
	"mamon/internal/services"
	"mamon/internal/store/memory"
)

type fakeIdentity struct {
	principal auth.Principal
	err       error
}

func (f *fakeIdentity) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeIdentity) Exchange(ctx context.Context, code string) (auth.Principal, error) {
	return f.principal, f.err
}

func newTestServer(t *testing.T) (*Server, *auth.SessionManager) {
	t.Helper()

	backend := memory.New()
	hub := live.NewHub(backend)
	svc := services.NewTransactionService(backend, nil, hub)
	sessions := auth.NewSessionManager("test-secret-at-least-16", time.Hour)
	identity := &fakeIdentity{principal: auth.Principal{Name: "Ada", Email: "ada@example.com"}}

	s := NewServer(":0", svc, hub, sessions, identity)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, sessions
}

func sessionCookie(t *testing.T, sessions *auth.SessionManager, email string) *http.Cookie {
	t.Helper()
	token, err := sessions.Issue(auth.Principal{Name: "Ada", Email: email})
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestDashboardRedirectsWithoutSession(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/auth/signin" {
		t.Fatalf("Location = %q, want /auth/signin", loc)
	}
}

func TestAPIUnauthorizedWithoutSession(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestDashboardRendersForSignedInUser(t *testing.T) {
	s, sessions := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, sessions, "ada@example.com"))
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Ada") {
		t.Fatalf("dashboard does not show the signed-in user")
	}
}

func TestGoogleRedirectSetsStateCookie(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("state cookie not set")
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "state="+state) {
		t.Fatalf("Location %q does not carry state %q", loc, state)
	}
}

func TestGoogleCallbackIssuesSession(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=abc&code=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusFound, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("Location = %q, want /", loc)
	}

	var session string
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c.Value
		}
	}
	if session == "" {
		t.Fatal("session cookie not set after callback")
	}
}

func TestGoogleCallbackRejectsStateMismatch(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=forged&code=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func postTransaction(t *testing.T, s *Server, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateListDeleteTransaction(t *testing.T) {
	s, sessions := newTestServer(t)
	cookie := sessionCookie(t, sessions, "ada@example.com")

	rec := postTransaction(t, s, cookie, url.Values{
		"type":     {"Expense"},
		"category": {"Food"},
		"amount":   {"42.50"},
		"date":     {"2026-08-15"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil || created.ID == "" {
		t.Fatalf("create response missing id: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var txs []transactionJSON
	if err := json.NewDecoder(rec.Body).Decode(&txs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != created.ID || txs[0].Amount != 42.5 {
		t.Fatalf("list = %+v, want the created transaction", txs)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/transactions/"+created.ID, nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204, body: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	txs = nil
	if err := json.NewDecoder(rec.Body).Decode(&txs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("list after delete = %+v, want empty", txs)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s, sessions := newTestServer(t)
	cookie := sessionCookie(t, sessions, "ada@example.com")

	tests := []struct {
		name string
		form url.Values
	}{
		{"bad amount", url.Values{"type": {"Expense"}, "category": {"Food"}, "amount": {"abc"}, "date": {"2026-08-15"}}},
		{"unknown category", url.Values{"type": {"Expense"}, "category": {"Yachts"}, "amount": {"10.00"}, "date": {"2026-08-15"}}},
		{"cross-type category", url.Values{"type": {"Income"}, "category": {"Food"}, "amount": {"10.00"}, "date": {"2026-08-15"}}},
		{"bad date", url.Values{"type": {"Expense"}, "category": {"Food"}, "amount": {"10.00"}, "date": {"15/08/2026"}}},
		{"sub-unit amount", url.Values{"type": {"Expense"}, "category": {"Food"}, "amount": {"0.99"}, "date": {"2026-08-15"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postTransaction(t, s, cookie, tc.form)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422, body: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeleteUnknownTransaction(t *testing.T) {
	s, sessions := newTestServer(t)
	cookie := sessionCookie(t, sessions, "ada@example.com")

	req := httptest.NewRequest(http.MethodDelete, "/api/transactions/no-such-id", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	s, sessions := newTestServer(t)
	cookie := sessionCookie(t, sessions, "ada@example.com")

	date := time.Now().Format(core.DateLayout)
	for _, form := range []url.Values{
		{"type": {"Income"}, "category": {"Salary"}, "amount": {"1000.00"}, "date": {date}},
		{"type": {"Expense"}, "category": {"Food"}, "amount": {"300.00"}, "date": {date}},
	} {
		if rec := postTransaction(t, s, cookie, form); rec.Code != http.StatusCreated {
			t.Fatalf("seed create status = %d, body: %s", rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, want 200", rec.Code)
	}

	var summary summaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Balance != 700 {
		t.Fatalf("balance = %v, want 700", summary.Balance)
	}
	if len(summary.Months) != 6 || len(summary.Income) != 6 || len(summary.Expense) != 6 {
		t.Fatalf("series lengths = %d/%d/%d, want 6 each", len(summary.Months), len(summary.Income), len(summary.Expense))
	}
	if len(summary.ExpenseByCategory) != 1 || summary.ExpenseByCategory[0].Label != "Food" {
		t.Fatalf("expense breakdown = %+v, want only Food", summary.ExpenseByCategory)
	}
}

func TestSummaryIsolatedPerUser(t *testing.T) {
	s, sessions := newTestServer(t)
	ada := sessionCookie(t, sessions, "ada@example.com")
	grace := sessionCookie(t, sessions, "grace@example.com")

	date := time.Now().Format(core.DateLayout)
	if rec := postTransaction(t, s, ada, url.Values{
		"type": {"Income"}, "category": {"Salary"}, "amount": {"500.00"}, "date": {date},
	}); rec.Code != http.StatusCreated {
		t.Fatalf("seed create status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.AddCookie(grace)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	var summary summaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Balance != 0 {
		t.Fatalf("balance for other user = %v, want 0", summary.Balance)
	}
}

func TestStreamDeliversSnapshots(t *testing.T) {
	s, sessions := newTestServer(t)
	cookie := sessionCookie(t, sessions, "ada@example.com")

	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(cookie)

	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("stream status = %d, want 200", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	reader := bufio.NewReader(res.Body)
	readSnapshot := func() streamPayload {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if strings.HasPrefix(line, "data: ") {
				var payload streamPayload
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload); err != nil {
					t.Fatalf("decode snapshot: %v", err)
				}
				return payload
			}
		}
	}

	// Initial snapshot arrives before any mutation.
	if payload := readSnapshot(); len(payload.Transactions) != 0 {
		t.Fatalf("initial snapshot = %+v, want empty", payload.Transactions)
	}

	if rec := postTransaction(t, s, cookie, url.Values{
		"type": {"Expense"}, "category": {"Food"}, "amount": {"12.00"}, "date": {"2026-08-15"},
	}); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	payload := readSnapshot()
	if len(payload.Transactions) != 1 || payload.Transactions[0].Category != "Food" {
		t.Fatalf("snapshot after create = %+v, want the created transaction", payload.Transactions)
	}
}
