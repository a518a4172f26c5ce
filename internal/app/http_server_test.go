package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/health"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/version"
)

func TestStartMetricsServer_Endpoints(t *testing.T) {
	port := findFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error { return nil }))
	srv := startMetricsServer(ctx, fmt.Sprintf("127.0.0.1:%d", port), log.WithField("test", "http"), healthHandler)
	require.NotNil(t, srv)

	cases := []struct {
		path string
		body string
	}{
		{path: "/metrics"},
		{path: "/healthz"},
		{path: "/livez", body: "ok"},
		{path: "/readyz", body: "ready"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			status, body := getEventually(t, fmt.Sprintf("http://127.0.0.1:%d%s", port, tc.path))
			assert.Equal(t, http.StatusOK, status)
			assert.NotEmpty(t, body)
			if tc.body != "" {
				assert.Equal(t, tc.body, body)
			}
		})
	}
}

func TestStartMetricsServer_ReadyzReportsStorageFailure(t *testing.T) {
	port := findFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
		return errors.New("connection refused")
	}))
	startMetricsServer(ctx, fmt.Sprintf("127.0.0.1:%d", port), log.WithField("test", "http-readyz"), healthHandler)

	status, body := getEventually(t, fmt.Sprintf("http://127.0.0.1:%d/readyz", port))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not ready", body)

	status, _ = getEventually(t, fmt.Sprintf("http://127.0.0.1:%d/livez", port))
	assert.Equal(t, http.StatusOK, status)
}

func TestStartMetricsServer_ShutdownOnCancel(t *testing.T) {
	port := findFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())

	startMetricsServer(ctx, fmt.Sprintf("127.0.0.1:%d", port), log.WithField("test", "http-shutdown"),
		healthcheck.NewHandler(version.GetVersion()))

	url := fmt.Sprintf("http://127.0.0.1:%d/livez", port)
	status, _ := getEventually(t, url)
	require.Equal(t, http.StatusOK, status)

	cancel()

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return true
		}
		_ = resp.Body.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond, "server should be stopped after context cancellation")
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	shutdownHTTP(nil, log.WithField("test", "http-nil"))
}

func TestStartMetricsServer_BusyAddr(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Сервер создаётся, ошибка ListenAndServe только логируется.
	srv := startMetricsServer(ctx, listener.Addr().String(), log.WithField("test", "http-busy"),
		healthcheck.NewHandler(version.GetVersion()))
	assert.NotNil(t, srv)
}

func getEventually(t *testing.T, url string) (int, string) {
	t.Helper()

	var (
		status int
		body   string
	)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		status, body = resp.StatusCode, string(raw)
		return true
	}, 2*time.Second, 20*time.Millisecond)
	return status, body
}

func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
