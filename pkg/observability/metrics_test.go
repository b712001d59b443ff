package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveConnectionOp(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveConnectionOp("create_saml", nil)
	m.ObserveConnectionOp("create_saml", assert.AnError)
	m.ObserveConnectionOp("create_saml", nil)

	body := scrape(t, m)
	assert.Contains(t, body, `fedbridge_connection_operations_total{operation="create_saml",status="ok"} 2`)
	assert.Contains(t, body, `fedbridge_connection_operations_total{operation="create_saml",status="error"} 1`)
}

func TestObserveJanitorSweep(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveJanitorSweep(3, nil)
	m.ObserveJanitorSweep(0, assert.AnError)

	body := scrape(t, m)
	assert.Contains(t, body, `fedbridge_janitor_sweeps_total{status="ok"} 1`)
	assert.Contains(t, body, `fedbridge_janitor_sweeps_total{status="error"} 1`)
	assert.Contains(t, body, `fedbridge_janitor_dangling_removed_total 3`)
}

func TestHTTPMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	handler := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/connections", nil))

	body := scrape(t, m)
	assert.Contains(t, body, `fedbridge_http_requests_total{method="POST",path="/api/v1/connections",status="201"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(raw)
}
