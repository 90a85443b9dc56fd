package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/gachadraw/app/draw/internal/metrics"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/prometheus"
	"github.com/lk2023060901/gachadraw/pkg/security"
	"github.com/lk2023060901/gachadraw/pkg/web/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrawer struct {
	mu   sync.Mutex
	reqs []model.DrawRequest
	res  *model.DrawResult
	err  error
}

func (f *fakeDrawer) Draw(_ context.Context, req model.DrawRequest) (*model.DrawResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

type fakeReporter struct {
	errs []error
}

func (f *fakeReporter) CaptureError(_ context.Context, err error, _ map[string]string) {
	f.errs = append(f.errs, err)
}

func (f *fakeReporter) CapturePanic(context.Context, any, map[string]string) {}

type fixture struct {
	router   *gin.Engine
	drawer   *fakeDrawer
	reporter *fakeReporter
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client, err := prometheus.New(&prometheus.Config{Namespace: "test", Path: "/metrics"})
	require.NoError(t, err)
	m, err := metrics.New(client)
	require.NoError(t, err)

	jwt, err := security.NewJWTManager(&security.JWTConfig{SecretKey: "test-secret"})
	require.NoError(t, err)
	token, err := jwt.GenerateToken(42)
	require.NoError(t, err)

	f := &fixture{
		router:   gin.New(),
		drawer:   &fakeDrawer{res: &model.DrawResult{Count: 1, Prizes: []*model.PrizeResult{{ItemID: 7}}}},
		reporter: &fakeReporter{},
		token:    token,
	}
	h := NewDrawHandler(f.drawer, m, f.reporter, logger.NewNoop())
	h.Register(f.router, middleware.Auth(&middleware.AuthConfig{JWTManager: jwt, OnError: AuthError}))
	NewHealthHandler("v1.2.3", map[string]Checker{
		"redis": func(context.Context) error { return nil },
	}).Register(f.router, client.Handler())
	return f
}

func (f *fixture) do(body string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gachas/p-12/draw", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestDrawSuccess(t *testing.T) {
	f := newFixture(t)

	w := f.do(`{"pattern":2,"drawToken":"tok"}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, float64(1), got["count"])

	require.Len(t, f.drawer.reqs, 1)
	assert.Equal(t, model.DrawRequest{UserID: 42, GachaID: "p-12", Pattern: model.PatternMulti, DrawToken: "tok"}, f.drawer.reqs[0])
}

func TestDrawEmptyBodyDefaultsPattern(t *testing.T) {
	f := newFixture(t)

	w := f.do("", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.drawer.reqs, 1)
	assert.Equal(t, model.Pattern(0), f.drawer.reqs[0].Pattern)
}

func TestDrawRejections(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		auth   bool
		err    error
		status int
		want   string
	}{
		{"missing token", `{}`, false, nil, http.StatusBadRequest, `{"errorCode":101}`},
		{"bad pattern", `{"pattern":9}`, true, nil, http.StatusBadRequest, `{"errorCode":102}`},
		{"malformed body", `{"pattern":`, true, nil, http.StatusBadRequest, `{"errorCode":102}`},
		{"engine code", `{}`, true, model.NewDrawError(model.CodeInsufficientPoints, ""), http.StatusBadRequest, `{"errorCode":201}`},
		{"internal", `{}`, true, errors.New("redis down"), http.StatusInternalServerError, `{"errorCode":0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.drawer.err = tc.err

			w := f.do(tc.body, tc.auth)
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.want, w.Body.String())
		})
	}
}

func TestDrawInternalErrorReported(t *testing.T) {
	f := newFixture(t)
	f.drawer.err = errors.New("redis down")

	f.do(`{}`, true)
	require.Len(t, f.reporter.errs, 1)

	f.drawer.err = model.NewDrawError(model.CodeGachaBusy, "")
	f.do(`{}`, true)
	assert.Len(t, f.reporter.errs, 1, "business rejections are not reported")
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","version":"v1.2.3","checks":{"redis":"ok"}}`, w.Body.String())

	f.do(`{}`, true)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_draws_total")
}

func TestHealthFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHealthHandler("v1.2.3", map[string]Checker{
		"redis":    func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("refused") },
	}).Register(r, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"Service Unavailable","version":"v1.2.3","checks":{"redis":"ok","postgres":"refused"}}`, w.Body.String())
}
