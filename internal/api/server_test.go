package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-auditor/internal/audit"
	"github.com/JakeFAU/lighthouse-auditor/internal/metrics"
)

type fakeStatus struct {
	summary audit.BatchSummary
	ok      bool
}

func (f fakeStatus) Last() (audit.BatchSummary, bool) { return f.summary, f.ok }

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(nil, zap.NewNop()), "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzWithoutBatch(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(fakeStatus{}, nil), "/readyz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestReadyzReportsLastBatch(t *testing.T) {
	t.Parallel()

	finished := time.Date(2024, 5, 1, 10, 4, 0, 0, time.UTC)
	status := fakeStatus{ok: true, summary: audit.BatchSummary{
		RunID:     "run-1",
		Started:   finished.Add(-4 * time.Minute),
		Finished:  finished,
		Tasks:     4,
		Succeeded: 3,
		Failed:    1,
	}}

	rec := serve(t, NewServer(status, zap.NewNop()), "/readyz")

	require.Equal(t, http.StatusOK, rec.Code)
	var body readyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.LastBatch)
	assert.Equal(t, "run-1", body.LastBatch.RunID)
	assert.Equal(t, 3, body.LastBatch.Succeeded)
	assert.True(t, finished.Equal(body.LastBatch.Finished))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics.ObserveBatch(1, 0, time.Now())
	s := NewServer(nil, zap.NewNop())
	serve(t, s, "/healthz")

	rec := serve(t, s, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "auditor_batches_total"), body)
	assert.Contains(t, body, `auditor_http_requests_total{`)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, zap.NewNop())
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := serve(t, s, "/boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
