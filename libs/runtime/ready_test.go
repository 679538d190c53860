package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadyz(t *testing.T) {
	ok := ReadyCheck{Name: "store", Check: func(context.Context) error { return nil }}
	down := ReadyCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	rw := httptest.NewRecorder()
	NewBaseMuxWithReady(ok).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	NewBaseMuxWithReady(ok, down).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rw.Code)

	var report ReadyReport
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &report))
	require.Equal(t, "unavailable", report.Status)
	require.Equal(t, "ok", report.Checks["store"])
	require.Equal(t, "connection refused", report.Checks["redis"])
}

func TestHealthz(t *testing.T) {
	rw := httptest.NewRecorder()
	NewBaseMuxWithReady().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "ok", rw.Body.String())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	require.Equal(t, slog.LevelError, ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
