package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medreminder/internal/handler"
	"medreminder/internal/httputil"
	"medreminder/internal/model"
	transporthttp "medreminder/internal/transport/http"
	authmw "medreminder/internal/transport/http/middleware"
)

const testSecret = "test-secret"

type stubRunner struct {
	report *model.CycleReport
	err    error
	calls  int
	ctxErr error
}

func (s *stubRunner) RunCycle(ctx context.Context, now time.Time) (*model.CycleReport, error) {
	s.calls++
	s.ctxErr = ctx.Err()
	return s.report, s.err
}

func mintToken(t *testing.T, secret, scope string, exp time.Time) string {
	t.Helper()
	claims := authmw.TriggerClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newTestRouter(runner *stubRunner, secret string) http.Handler {
	return transporthttp.NewRouter(transporthttp.RouterConfig{
		DispatchHandler: handler.NewDispatchHandler(runner, zap.NewNop()),
		JWTSecret:       secret,
	})
}

func postRun(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/dispatch/run", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(&stubRunner{}, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(&stubRunner{}, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_TriggerDisabledWithoutSecret(t *testing.T) {
	runner := &stubRunner{report: &model.CycleReport{}}
	h := newTestRouter(runner, "")

	rec := postRun(h, mintToken(t, testSecret, authmw.ScopeDispatch, time.Now().Add(time.Minute)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestRouter_TriggerRunsCycle(t *testing.T) {
	runner := &stubRunner{report: &model.CycleReport{
		RunID:      "run-1",
		Bucket:     "08:00",
		DayKey:     "2025-03-10",
		Due:        2,
		Suppressed: 1,
		Dispatched: 1,
		Outcomes: []model.DispatchOutcome{
			{ScheduleID: "s1", Endpoint: "e1", Status: model.DeliveryDelivered},
			{ScheduleID: "s1", Endpoint: "e2", Status: model.DeliveryFailed},
		},
	}}
	h := newTestRouter(runner, testSecret)

	rec := postRun(h, mintToken(t, testSecret, authmw.ScopeDispatch, time.Now().Add(time.Minute)))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary handler.CycleSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "08:00", summary.Bucket)
	assert.Equal(t, 2, summary.Due)
	assert.Equal(t, 1, summary.Delivered)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, runner.calls)
}

func TestRouter_TriggerSurvivesClientDisconnect(t *testing.T) {
	runner := &stubRunner{report: &model.CycleReport{}}
	h := newTestRouter(runner, testSecret)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/dispatch/run", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, testSecret, authmw.ScopeDispatch, time.Now().Add(time.Minute)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, runner.calls)
	assert.NoError(t, runner.ctxErr)
}

func TestRouter_TriggerCycleError(t *testing.T) {
	runner := &stubRunner{report: &model.CycleReport{}, err: errors.New("db down")}
	h := newTestRouter(runner, testSecret)

	rec := postRun(h, mintToken(t, testSecret, authmw.ScopeDispatch, time.Now().Add(time.Minute)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, httputil.ErrCodeInternal, errorCode(t, rec))
}

func TestRouter_TriggerAuth(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing token",
			token:    "",
			wantCode: http.StatusUnauthorized,
			wantErr:  httputil.ErrCodeUnauthorized,
		},
		{
			name:     "wrong secret",
			token:    mintToken(t, "other-secret", authmw.ScopeDispatch, time.Now().Add(time.Minute)),
			wantCode: http.StatusUnauthorized,
			wantErr:  httputil.ErrCodeTokenInvalid,
		},
		{
			name:     "expired",
			token:    mintToken(t, testSecret, authmw.ScopeDispatch, time.Now().Add(-time.Minute)),
			wantCode: http.StatusUnauthorized,
			wantErr:  httputil.ErrCodeTokenExpired,
		},
		{
			name:     "wrong scope",
			token:    mintToken(t, testSecret, "read", time.Now().Add(time.Minute)),
			wantCode: http.StatusForbidden,
			wantErr:  httputil.ErrCodeForbidden,
		},
		{
			name:     "garbage",
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
			wantErr:  httputil.ErrCodeTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{report: &model.CycleReport{}}
			h := newTestRouter(runner, testSecret)

			rec := postRun(h, tt.token)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, rec))
			assert.Equal(t, 0, runner.calls)
		})
	}
}
