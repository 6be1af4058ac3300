package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"tfm-tracker/internal/config"
	"tfm-tracker/internal/constants"
	"tfm-tracker/internal/metrics"
	"tfm-tracker/internal/service"
	"tfm-tracker/internal/store"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{AllowedOrigins: []string{"*"}, Location: time.UTC}
	m := metrics.New()
	docs := service.NewDocumentService(
		store.NewDocumentStore(store.NewMemoryKV(), store.NewMemoryBackups(constants.MaxBackups), zerolog.Nop()),
		nil, m, zerolog.Nop(),
	)
	stats := service.NewStatsService(docs, cfg, zerolog.Nop())
	ts := httptest.NewServer(NewServer(docs, stats, m, cfg, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, gjson.Result) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp, gjson.ParseBytes(raw)
}

func TestDataRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp, doc := do(t, http.MethodGet, ts.URL+"/api/data", "")
	if resp.StatusCode != http.StatusOK || doc.Get("selectedMap").String() != "THARSIS" || !doc.Get("lastUpdated").Exists() {
		t.Fatalf("unexpected empty document %d %s", resp.StatusCode, doc.Raw)
	}

	resp, body := do(t, http.MethodPost, ts.URL+"/api/data",
		`{"players":[{"id":1,"name":"Alice"}],"games":[],"selectedMap":{"value":"ELYSIUM"}}`)
	if resp.StatusCode != http.StatusOK || !body.Get("success").Bool() {
		t.Fatalf("save failed %d %s", resp.StatusCode, body.Raw)
	}
	if body.Get("stats.players").Int() != 1 || body.Get("stats.games").Int() != 0 {
		t.Errorf("unexpected stats %s", body.Raw)
	}
	saved := body.Get("lastUpdated").String()

	_, doc = do(t, http.MethodGet, ts.URL+"/api/data", "")
	if doc.Get("players.0.name").String() != "Alice" || doc.Get("selectedMap").String() != "ELYSIUM" || doc.Get("lastUpdated").String() != saved {
		t.Errorf("unexpected stored document %s", doc.Raw)
	}
}

func TestDataRejectsBadPayload(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, http.MethodPost, ts.URL+"/api/data", `{"players":"nope","games":[]}`)
	if resp.StatusCode != http.StatusBadRequest || body.Get("success").Bool() || body.Get("message").String() == "" {
		t.Errorf("expected 400 with message, got %d %s", resp.StatusCode, body.Raw)
	}
}

func TestSyncEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_, body := do(t, http.MethodGet, ts.URL+"/api/sync", "")
	if !body.Get("needsUpdate").Bool() || body.Get("data").Type != gjson.Null || body.Get("lastUpdated").Type != gjson.Null {
		t.Errorf("unexpected sync on empty store %s", body.Raw)
	}

	_, saved := do(t, http.MethodPost, ts.URL+"/api/data", `{"players":[],"games":[]}`)
	stamp := saved.Get("lastUpdated").String()

	_, body = do(t, http.MethodGet, ts.URL+"/api/sync?timestamp="+stamp, "")
	if body.Get("needsUpdate").Bool() || body.Get("data").Type != gjson.Null {
		t.Errorf("client with current timestamp should be up to date: %s", body.Raw)
	}
	_, body = do(t, http.MethodGet, ts.URL+"/api/sync?timestamp=old", "")
	if !body.Get("needsUpdate").Bool() || body.Get("data.lastUpdated").String() != stamp {
		t.Errorf("stale client should receive data: %s", body.Raw)
	}
}

func TestExportEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/api/export", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	cd := resp.Header.Get("Content-Disposition")
	if !strings.HasPrefix(cd, `attachment; filename="tfm_data_`) || !strings.HasSuffix(cd, `.json"`) {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if body.Get("exportedBy").String() != "TFM Counter Web App" {
		t.Errorf("missing exportedBy: %s", body.Raw)
	}
}

func TestRecalculateWithoutData(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, http.MethodPost, ts.URL+"/api/recalculate", "")
	if resp.StatusCode != http.StatusNotFound || body.Get("success").Bool() {
		t.Errorf("expected 404, got %d %s", resp.StatusCode, body.Raw)
	}
}

func TestRankingsUnknownPeriod(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := do(t, http.MethodGet, ts.URL+"/api/rankings?period=3", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	resp, body := do(t, http.MethodGet, ts.URL+"/api/rankings", "")
	if resp.StatusCode != http.StatusOK || body.Get("period").String() != "all" || !body.Get("players").IsArray() {
		t.Errorf("unexpected rankings %d %s", resp.StatusCode, body.Raw)
	}
}

func TestMethodsAndPreflight(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodDelete, "/api/data", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/sync", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/export", http.StatusMethodNotAllowed},
		{http.MethodOptions, "/api/data", http.StatusOK},
		{http.MethodOptions, "/api/export", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, body := do(t, tt.method, ts.URL+tt.path, "")
			if resp.StatusCode != tt.want {
				t.Errorf("got %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusMethodNotAllowed && body.Get("message").String() != "Method not allowed" {
				t.Errorf("unexpected body %s", body.Raw)
			}
			if tt.method == http.MethodOptions && resp.Header.Get("Access-Control-Allow-Origin") == "" {
				t.Error("missing CORS header on OPTIONS")
			}
		})
	}
}

func TestPreflightFromBrowser(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/data", nil)
	req.Header.Set("Origin", "https://tfm.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 || resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Errorf("preflight rejected: %d %v", resp.StatusCode, resp.Header)
	}
}

func TestMetricsAndHealth(t *testing.T) {
	ts := newTestServer(t)
	do(t, http.MethodGet, ts.URL+"/api/sync", "")

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(raw), `tfm_http_requests_total{method="GET",route="/api/sync",status="200"} 1`) {
		t.Errorf("request not counted:\n%s", raw)
	}

	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || !body.Get("success").Bool() {
		t.Errorf("unhealthy: %d %s", resp.StatusCode, body.Raw)
	}
}

func TestRosterAndBackups(t *testing.T) {
	ts := newTestServer(t)

	resp, roster := do(t, http.MethodGet, ts.URL+"/api/roster", "")
	if resp.StatusCode != http.StatusOK || !roster.IsArray() || len(roster.Array()) != 0 {
		t.Fatalf("expected empty roster, got %d %s", resp.StatusCode, roster.Raw)
	}

	do(t, http.MethodPost, ts.URL+"/api/data", `{"players":[{"id":1,"name":"Alice"}],"games":[]}`)
	resp, saved := do(t, http.MethodPost, ts.URL+"/api/data",
		`{"players":[{"id":1,"name":"Alice"},{"id":2,"name":"Bob"}],"games":[{"id":1,"date":"2024-03-01","map":"THARSIS","results":[`+
			`{"playerId":2,"playerName":"Bob","score":70,"rank":1},{"playerId":1,"playerName":"Alice","score":60,"rank":2}]}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save failed %d %s", resp.StatusCode, saved.Raw)
	}

	_, roster = do(t, http.MethodGet, ts.URL+"/api/roster", "")
	if roster.Get("#").Int() != 2 || roster.Get("0.name").String() != "Bob" || roster.Get("0.stats.wins").Int() != 1 {
		t.Errorf("unexpected roster %s", roster.Raw)
	}

	resp, backups := do(t, http.MethodGet, ts.URL+"/api/backups", "")
	if resp.StatusCode != http.StatusOK || backups.Get("#").Int() != 1 || backups.Get("0.lastUpdated").String() == "" {
		t.Errorf("expected one backup, got %d %s", resp.StatusCode, backups.Raw)
	}
	if backups.Get("0.document").Exists() {
		t.Error("backup listing must not ship document bodies")
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/backups", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}
