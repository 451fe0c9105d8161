/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package httpserver

import (
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traas-stack/hostmonitor/pkg/logger"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/registry"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestComponent() *HttpServerComponent {
	configs := metric.DefaultConfigs()
	configs[metric.IO] = metric.Config{Enabled: false, RefreshRate: 4}
	return NewHttpServerComponent("127.0.0.1:0", registry.New(configs))
}

func get(t *testing.T, h *HttpServerComponent, path string) (int, string) {
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestListMetrics(t *testing.T) {
	h := newTestComponent()
	code, body := get(t, h, "/api/metrics")
	require.Equal(t, http.StatusOK, code)

	var statuses []registry.Status
	require.NoError(t, json.Unmarshal([]byte(body), &statuses))
	require.Len(t, statuses, 3)
	assert.Equal(t, "cpu", statuses[0].Kind)
	assert.Equal(t, "initialized", statuses[0].State)
	assert.Equal(t, "io", statuses[2].Kind)
	assert.Equal(t, "disabled", statuses[2].State)
	assert.Equal(t, uint8(4), statuses[2].RefreshRate)
}

func TestDebugToggle(t *testing.T) {
	h := newTestComponent()
	defer func() {
		logger.SetDebugEnabled(false)
	}()

	_, body := get(t, h, "/api/log/debug/start")
	assert.Equal(t, "OK", body)
	assert.True(t, logger.IsDebugEnabled())

	get(t, h, "/api/log/debug/stop")
	assert.False(t, logger.IsDebugEnabled())
}

func TestPrometheusEndpoint(t *testing.T) {
	h := newTestComponent()
	code, body := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "go_goroutines")
}

func TestStartServeStop(t *testing.T) {
	h := newTestComponent()
	require.NoError(t, h.Start())
	defer h.Stop()

	resp, err := http.Get("http://" + h.Addr() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	help := string(body)
	assert.True(t, strings.HasPrefix(help, "Some help msg for hostmonitor:"))
	assert.Contains(t, help, "/api/metrics")
	assert.Contains(t, help, "listMetrics:")
}

func TestVersion(t *testing.T) {
	h := newTestComponent()
	_, body := get(t, h, "/version")

	info := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(body), &info))
	assert.Contains(t, info, "goversion")
	assert.Contains(t, info, "uptime")
}
