package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"combos/internal/amqp"
	"combos/internal/middleware/ratelimit"
	"combos/internal/services"
)

type fakeJobs struct {
	mu      sync.Mutex
	msgs    []*amqp.SearchRequestMessage
	err     error
	healthy bool
}

func (f *fakeJobs) PublishSearchRequest(ctx context.Context, msg *amqp.SearchRequestMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeJobs) Healthy() bool { return f.healthy }

type fakeSheet struct {
	lines    []string
	err      error
	gotRange string
}

func (f *fakeSheet) ReadLines(ctx context.Context) ([]string, error) {
	return f.lines, f.err
}

func (f *fakeSheet) ReadRange(ctx context.Context, rng string) ([]string, error) {
	f.gotRange = rng
	return f.lines, f.err
}

func newTestServer(deps Deps) *Server {
	if deps.Search == nil {
		deps.Search = services.NewSearchService(services.DefaultOptions(), nil)
	}
	return NewServer(":0", deps)
}

func postForm(srv *Server, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postJSON(srv *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(Deps{})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Combination Finder") || !strings.Contains(body, `value="500"`) {
		t.Fatalf("index body missing heading or default cap: %s", body)
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing on index")
	}
	if !strings.Contains(body, `id="copy-export"`) {
		t.Error("index is missing the copy export button")
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "highlightMembers") {
		t.Errorf("app.js status=%d, missing member highlighting", rr.Code)
	}

	for _, path := range []string{"/healthz", "/readyz", "/static/app.css"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestReadyz_UnhealthyQueue(t *testing.T) {
	srv := newTestServer(Deps{Jobs: &fakeJobs{healthy: false}})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(Deps{})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/combinations", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestUIEntries(t *testing.T) {
	srv := newTestServer(Deps{})

	rr := postForm(srv, "/ui/entries", url.Values{"text": {"$1,234.56\nabc\n(45.00)\n12.5"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Parsed 3 entries.", "#0", "$1,234.56", "-$45.00", "#2"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q: %s", want, body)
		}
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"entries:parsed"`) {
		t.Errorf("missing entries:parsed trigger: %s", rr.Header().Get("HX-Trigger"))
	}
}

func TestUICombinations(t *testing.T) {
	srv := newTestServer(Deps{})

	rr := postForm(srv, "/ui/combinations", url.Values{
		"text":   {"1.00\n2.00\n3.00"},
		"target": {"3"},
	}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Found 2 combination(s).",
		"Combo 1 · sum = $3.00",
		"Combo 2 · sum = $3.00",
		"--hue: 0",
		"--hue: 47",
		`data-hue="47"`,
		`data-index="2"`,
		"#2 $3.00",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q: %s", want, body)
		}
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"combinations":2`) {
		t.Errorf("missing search:completed trigger: %s", rr.Header().Get("HX-Trigger"))
	}
}

func TestUICombinations_Truncated(t *testing.T) {
	srv := newTestServer(Deps{})

	rr := postForm(srv, "/ui/combinations", url.Values{
		"text":      {"1\n1\n1\n1"},
		"target":    {"2"},
		"max_count": {"2"},
	}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Found 2 combination(s) (truncated).") {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"warning"`) {
		t.Errorf("expected warning notification: %s", rr.Header().Get("HX-Trigger"))
	}
}

func TestUICombinations_ValidationFragment(t *testing.T) {
	srv := newTestServer(Deps{})

	rr := postForm(srv, "/ui/combinations", url.Values{"text": {"1\n2"}, "target": {"0"}}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `class="error"`) {
		t.Errorf("expected error fragment, got %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Enter a valid non-zero target amount.") {
		t.Errorf("expected target message, got %s", rr.Body.String())
	}
}

func TestAPIEntries(t *testing.T) {
	srv := newTestServer(Deps{})

	rr := postJSON(srv, "/api/entries", `{"text":"1.005\n-2\nx"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got entriesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Count != 2 || got.Entries[0].Cents != 101 || got.Entries[1].Amount != "-2.00" || got.Status != "Parsed 2 entries." {
		t.Errorf("unexpected response %+v", got)
	}
}

func TestAPICombinations(t *testing.T) {
	srv := newTestServer(Deps{})

	rr := postJSON(srv, "/api/combinations", `{"lines":["1.00","2.00","3.00"],"target":"3","max_count":"10"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got combinationsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.TargetCents != 300 || got.MaxCount != 10 || len(got.Combinations) != 2 || got.Truncated {
		t.Fatalf("unexpected response %+v", got)
	}
	for _, c := range got.Combinations {
		if c.Sum != "3.00" {
			t.Errorf("combination sum = %q, want 3.00", c.Sum)
		}
	}
}

func TestAPICombinations_Errors(t *testing.T) {
	srv := newTestServer(Deps{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"malformed json", `{"text":`, http.StatusBadRequest, "malformed_request", ""},
		{"zero target", `{"text":"1","target":"0"}`, http.StatusUnprocessableEntity, "invalid_input",
			"Enter a valid non-zero target amount."},
		{"no entries", `{"text":"abc","target":"1"}`, http.StatusUnprocessableEntity, "invalid_input",
			"Paste and parse some entries first."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(srv, "/api/combinations", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			body := decodeError(t, rr)
			if body.Code != tt.wantCode || body.RequestID == "" {
				t.Errorf("unexpected error body %+v", body)
			}
			if tt.wantMsg != "" && body.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", body.Error, tt.wantMsg)
			}
		})
	}
}

func TestAPICombinations_BodyTooLarge(t *testing.T) {
	srv := newTestServer(Deps{})

	big := `{"text":"` + strings.Repeat("1", maxBodyBytes+10) + `"}`
	rr := postJSON(srv, "/api/combinations", big)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestAPIExport(t *testing.T) {
	srv := newTestServer(Deps{})
	form := url.Values{"text": {"1.00\n2.50\n0.50\n1.50"}, "target": {"2"}, "n": {"1"}}

	rr := postForm(srv, "/api/combinations/export", form, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
	want := "index\tamount\n2\t0.50\n3\t1.50\nsum\t2.00\n"
	if rr.Body.String() != want {
		t.Errorf("body = %q, want %q", rr.Body.String(), want)
	}

	for _, n := range []string{"2", "0", "x"} {
		form.Set("n", n)
		rr := postForm(srv, "/api/combinations/export", form, false)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("n=%s: expected 422, got %d", n, rr.Code)
		}
	}
}

func TestCreateJob(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(Deps{})
		rr := postJSON(srv, "/api/jobs", `{"text":"1","target":"1"}`)
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
	})

	t.Run("queued", func(t *testing.T) {
		jobs := &fakeJobs{healthy: true}
		srv := newTestServer(Deps{Jobs: jobs})

		rr := postJSON(srv, "/api/jobs", `{"lines":["1","2"],"target":"3","max_count":"5"}`)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
		}
		var got jobResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(jobs.msgs) != 1 {
			t.Fatalf("published %d messages, want 1", len(jobs.msgs))
		}
		msg := jobs.msgs[0]
		if got.ID != msg.ID || got.Status != "queued" {
			t.Errorf("response %+v does not match message %s", got, msg.ID)
		}
		if msg.Text != "1\n2" || msg.Target != "3" || msg.MaxCount != "5" {
			t.Errorf("unexpected message %+v", msg)
		}
	})

	t.Run("invalid request is not queued", func(t *testing.T) {
		jobs := &fakeJobs{healthy: true}
		srv := newTestServer(Deps{Jobs: jobs})

		rr := postJSON(srv, "/api/jobs", `{"text":"1","target":""}`)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rr.Code)
		}
		if len(jobs.msgs) != 0 {
			t.Error("invalid request was published")
		}
	})

	t.Run("broker down", func(t *testing.T) {
		srv := newTestServer(Deps{Jobs: &fakeJobs{err: amqp.ErrCircuitOpen}})
		rr := postJSON(srv, "/api/jobs", `{"text":"1","target":"1"}`)
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
		if body := decodeError(t, rr); body.Code != "queue_unavailable" {
			t.Errorf("code = %q", body.Code)
		}
	})
}

func TestSheetCombinations(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(Deps{})
		rr := postJSON(srv, "/api/sheets/combinations", `{"target":"1"}`)
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
	})

	t.Run("custom range", func(t *testing.T) {
		sheet := &fakeSheet{lines: []string{"Amount", "1.00", "", "$2.00"}}
		srv := newTestServer(Deps{Sheet: sheet})

		rr := postJSON(srv, "/api/sheets/combinations", `{"target":"3","range":"Other!B:B"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if sheet.gotRange != "Other!B:B" {
			t.Errorf("range = %q", sheet.gotRange)
		}
		var got combinationsResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got.Entries) != 2 || len(got.Combinations) != 1 {
			t.Errorf("unexpected response %+v", got)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		srv := newTestServer(Deps{Sheet: &fakeSheet{err: errors.New("googleapi: 403")}})
		rr := postJSON(srv, "/api/sheets/combinations", `{"target":"3"}`)
		if rr.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rr.Code)
		}
		if body := decodeError(t, rr); strings.Contains(body.Error, "403") || body.Code != "source_failed" {
			t.Errorf("unexpected error body %+v", body)
		}
	})
}

func TestRateLimitOnPosts(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1})
	srv := newTestServer(Deps{Limiter: limiter})

	if rr := postJSON(srv, "/api/entries", `{"text":"1"}`); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}
	rr := postJSON(srv, "/api/entries", `{"text":"1"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if body := decodeError(t, rr); body.Code != "rate_limited" {
		t.Errorf("code = %q", body.Code)
	}

	// GET routes are not limited.
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("healthz status=%d", rr.Code)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrSearchTimeout, http.StatusGatewayTimeout},
		{services.ErrTooManyEntries, http.StatusUnprocessableEntity},
		{errSheetsDisabled, http.StatusServiceUnavailable},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
