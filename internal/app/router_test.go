package app_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditoria360/auditoria360/internal/app"
	"github.com/auditoria360/auditoria360/internal/authn"
	"github.com/auditoria360/auditoria360/internal/observability"
	"github.com/auditoria360/auditoria360/internal/parametros"
	_ "github.com/auditoria360/auditoria360/testing"
)

const jwtSecret = "router-test-secret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics(parametros.KindNames()...)
	service := parametros.NewService(parametros.NewMemoryRepository(), nil, metrics, logger)
	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            &app.Config{AppEnv: "test", RateLimitPerMinute: 1000},
		ParametrosHandler: parametros.NewHandler(logger, service),
		Auth:              authn.New(jwtSecret, logger),
		Metrics:           metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func token(t *testing.T, scopes ...string) string {
	t.Helper()
	tok, err := authn.Issue(jwtSecret, "router-test", scopes, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, method, url, bearer, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	res := do(t, http.MethodGet, srv.URL+"/healthz", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, res.Header.Get("X-Frame-Options"))
}

func TestParametrosRequireToken(t *testing.T) {
	srv := newServer(t)
	res := do(t, http.MethodGet, srv.URL+"/parametros/IRRF", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestParametrosLifecycleThroughRouter(t *testing.T) {
	srv := newServer(t)
	writer := token(t, authn.ScopeWrite)
	reader := token(t)

	res := do(t, http.MethodPost, srv.URL+"/parametros/fgts", reader, `{"fields":{"rate":0.08}}`)
	require.Equal(t, http.StatusForbidden, res.StatusCode)

	res = do(t, http.MethodPost, srv.URL+"/parametros/fgts", writer, `{"fields":{"rate":0.08,"penalty_rate":0.4}}`)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created parametros.Record
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	assert.Equal(t, parametros.KindFGTS, created.Kind)
	assert.Equal(t, "/parametros/FGTS/"+created.ID, res.Header.Get("Location"))

	res = do(t, http.MethodGet, srv.URL+"/parametros/FGTS", reader, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var listed []parametros.Record
	require.NoError(t, json.NewDecoder(res.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	res = do(t, http.MethodDelete, srv.URL+"/parametros/FGTS/"+created.ID, writer, "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = do(t, http.MethodGet, srv.URL+"/metrics", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `auditoria360_parametros_mutations_total{action="create",kind="FGTS",outcome="ok"} 1`)
	assert.Contains(t, string(body), `auditoria360_http_requests_total{code="200",kind="FGTS",route="/parametros/{kind}/{id}"} 1`)
	assert.Contains(t, string(body), `auditoria360_http_requests_total{code="201",kind="FGTS",route="/parametros/{kind}`)
}
