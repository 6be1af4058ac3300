package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrument(t *testing.T) {
	m := New()
	h := m.Instrument("/api/data", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/data", nil))

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("/api/data", "GET", "418")); got != 1 {
		t.Errorf("expected 1 request counted, got %v", got)
	}
}

func TestObserveSave(t *testing.T) {
	m := New()
	m.ObserveSave(nil, 3, 7)
	m.ObserveSave(errors.New("disk full"), 9, 9)

	if got := testutil.ToFloat64(m.DocumentGames); got != 7 {
		t.Errorf("failed saves must not move the gauge, got %v", got)
	}
	if got := testutil.ToFloat64(m.DocumentSaves.WithLabelValues("error")); got != 1 {
		t.Errorf("expected one failed save, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveSync(true)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `tfm_sync_checks_total{needs_update="true"} 1`) {
		t.Errorf("sync counter missing from exposition:\n%s", rec.Body.String())
	}
}
