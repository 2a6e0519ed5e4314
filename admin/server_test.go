package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/m4n5ter/ownership-cache-killer/metrics"
)

type stubCache struct {
	err error
}

func (s stubCache) Health(context.Context) error { return s.err }

type AdminSuite struct {
	suite.Suite
	registry *prometheus.Registry
	logger   *slog.Logger
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminSuite))
}

func (s *AdminSuite) SetupTest() {
	s.registry = prometheus.NewRegistry()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *AdminSuite) get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *AdminSuite) TestHealthy() {
	rec := s.get(NewRouter(stubCache{}, s.registry, s.logger), "/healthz")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())
}

func (s *AdminSuite) TestUnhealthy() {
	rec := s.get(NewRouter(stubCache{err: errors.New("dial tcp: connection refused")}, s.registry, s.logger), "/healthz")

	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.JSONEq(`{"status":"unavailable","error":"dial tcp: connection refused"}`, rec.Body.String())
}

func (s *AdminSuite) TestMetrics() {
	m := metrics.New(s.registry)
	m.IncrementNotification("HEARTBEAT", "skip")

	rec := s.get(NewRouter(stubCache{}, s.registry, s.logger), "/metrics")

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `ownership_cache_notifications_total{decision="skip",type="HEARTBEAT"} 1`)
}

func (s *AdminSuite) TestUnknownRoute() {
	rec := s.get(NewRouter(stubCache{}, s.registry, s.logger), "/nope")
	s.Equal(http.StatusNotFound, rec.Code)
}
