package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bokslut/internal/closing"
	closinghttp "github.com/odyssey-erp/bokslut/internal/closing/http"
	"github.com/odyssey-erp/bokslut/internal/observability"
	"github.com/odyssey-erp/bokslut/internal/platform/cache"
	"github.com/odyssey-erp/bokslut/internal/platform/httpx"
	_ "github.com/odyssey-erp/bokslut/internal/testing/guard"
)

func redisPinger(t *testing.T) (Pinger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := cache.New(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return PingFunc(func(ctx context.Context) error {
		return cache.Ping(ctx, client)
	}), mr
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthz(t *testing.T) {
	require.True(t, InTestMode())
	router := NewRouter(RouterParams{Config: &Config{AppEnv: "test"}})
	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouterReadinessPingsDependencies(t *testing.T) {
	pinger, mr := redisPinger(t)
	router := NewRouter(RouterParams{
		Config:    &Config{AppEnv: "test"},
		Readiness: map[string]Pinger{"redis": pinger},
	})

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report readinessReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, "ok", report.Status)
	require.Equal(t, "ok", report.Checks["redis"])

	mr.Close()
	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, "degraded", report.Status)
	require.Equal(t, "unavailable", report.Checks["redis"])
}

func TestRouterAPIRequiresPrincipal(t *testing.T) {
	svc := closing.NewService(nil, nil, nil, nil, closing.DefaultConfig(), nil)
	router := NewRouter(RouterParams{
		Config:         &Config{AppEnv: "test"},
		ClosingHandler: closinghttp.NewHandler(svc, nil),
	})
	path := "/api/v1/periods/" + uuid.NewString() + "/closing"

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodPost, path+"/finalize", nil)
	req.Header.Set(httpx.HeaderWorkspaceID, uuid.NewString())
	rec = serve(t, router, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "actor header is required too")
}

func TestRouterExposesMetrics(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{AppEnv: "test"}, Metrics: observability.NewMetrics()})
	serve(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bokslut_http_requests_total")
}

func TestRouterUnknownRouteIsProblem(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{AppEnv: "test"}})
	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
