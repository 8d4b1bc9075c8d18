package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://Example1.com/path", "example1.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveHelpers(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(auditsTotal.WithLabelValues("metrics-test.example", "mobile", "published"))
	ObserveAudit("https://metrics-test.example/a", "mobile", "published")
	if got := testutil.ToFloat64(auditsTotal.WithLabelValues("metrics-test.example", "mobile", "published")); got != before+1 {
		t.Fatalf("expected audits counter to increase by 1, got %f -> %f", before, got)
	}

	okBefore := testutil.ToFloat64(sinkWritesTotal.WithLabelValues("metrics-test-sink", "success"))
	errBefore := testutil.ToFloat64(sinkWritesTotal.WithLabelValues("metrics-test-sink", "error"))
	ObserveSinkWrite("metrics-test-sink", nil)
	ObserveSinkWrite("metrics-test-sink", errors.New("boom"))
	if got := testutil.ToFloat64(sinkWritesTotal.WithLabelValues("metrics-test-sink", "success")); got != okBefore+1 {
		t.Fatalf("unexpected success count %f", got)
	}
	if got := testutil.ToFloat64(sinkWritesTotal.WithLabelValues("metrics-test-sink", "error")); got != errBefore+1 {
		t.Fatalf("unexpected error count %f", got)
	}

	finished := time.Unix(1714557600, 0)
	ObserveBatch(3, 1, finished)
	if got := testutil.ToFloat64(batchTasks.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected failed gauge 1, got %f", got)
	}
	if got := testutil.ToFloat64(lastBatchTimestamp); got != float64(finished.Unix()) {
		t.Fatalf("unexpected last batch timestamp %f", got)
	}
	ObserveAuditDuration("mobile", 12*time.Second)
	if n := testutil.CollectAndCount(auditDurationSeconds); n == 0 {
		t.Fatal("expected audit duration to be observed")
	}
	ObserveHostWait("Example.COM", 2*time.Second)
	if n := testutil.CollectAndCount(hostWaitSeconds); n == 0 {
		t.Fatal("expected host wait to be observed")
	}
}

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/middleware-test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/middleware-test", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418")); got != before+1 {
		t.Fatalf("expected request counter to increase, got %f", got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://google.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
