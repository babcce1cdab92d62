package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	err error
}

func (f *fakeChecker) HealthCheck(ctx context.Context) error {
	return f.err
}

func TestLiveness(t *testing.T) {
	checker := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	checker.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessHealthy(t *testing.T) {
	checker := NewHealthChecker(map[string]Checker{
		"sheets":   &fakeChecker{},
		"receipts": &fakeChecker{},
	})

	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Len(t, status.Dependencies, 2)
}

func TestReadinessUnhealthyDependency(t *testing.T) {
	checker := NewHealthChecker(map[string]Checker{
		"sheets":   &fakeChecker{},
		"receipts": &fakeChecker{err: errors.New("bucket unreachable")},
	})

	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["receipts"].Status)
	assert.Contains(t, status.Dependencies["receipts"].Message, "bucket unreachable")
	assert.Equal(t, StatusHealthy, status.Dependencies["sheets"].Status)
}

func TestNewHealthServerRoutes(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	server := NewHealthServer(":0", NewHealthChecker(nil), registry)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
