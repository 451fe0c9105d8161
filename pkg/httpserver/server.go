/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package httpserver serves the status endpoints of the monitor: self metrics, a registry snapshot and debug log toggles.
package httpserver

import (
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/traas-stack/hostmonitor/pkg/appconfig"
	"github.com/traas-stack/hostmonitor/pkg/logger"
	"github.com/traas-stack/hostmonitor/pkg/registry"
	"github.com/traas-stack/hostmonitor/pkg/stats"
	"github.com/traas-stack/hostmonitor/pkg/util"
	"go.uber.org/zap"
	"net"
	"net/http"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"
)

const (
	DefaultAddr = "127.0.0.1:9117"
)

type (
	HttpServerComponent struct {
		addr     string
		registry *registry.Registry
		mux      *http.ServeMux
		apis     map[string]ApiServerFunc
		apiMu    sync.RWMutex
		server   *http.Server
		listener net.Listener
		mutex    sync.Mutex
	}
)

func NewHttpServerComponent(addr string, r *registry.Registry) *HttpServerComponent {
	if addr == "" {
		addr = DefaultAddr
	}
	h := &HttpServerComponent{
		addr:     addr,
		registry: r,
		mux:      http.NewServeMux(),
		apis:     map[string]ApiServerFunc{},
	}
	h.RegisterApiHandleFunc("/metrics", promhttp.HandlerFor(stats.Registry, promhttp.HandlerOpts{}).ServeHTTP)
	h.RegisterApiHandleFunc("/api/metrics", h.listMetrics)
	h.RegisterApiHandleFunc("/api/log/debug/start", startDebugLog)
	h.RegisterApiHandleFunc("/api/log/debug/stop", stopDebugLog)
	h.RegisterApiHandleFunc("/version", printVersion)
	h.mux.HandleFunc("/", h.printHelp)
	return h
}

// Start binds the address and serves in the background.
func (h *HttpServerComponent) Start() error {
	l, err := net.Listen("tcp", h.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", h.addr)
	}
	server := &http.Server{Handler: h.mux}

	h.mutex.Lock()
	h.server = server
	h.listener = l
	h.mutex.Unlock()

	logger.Infoz("[http] start http server", zap.String("addr", l.Addr().String()))
	util.GoWithRecover(func() {
		if err := server.Serve(l); err != nil {
			if err == http.ErrServerClosed {
				logger.Infoz("[http] server closed", zap.String("addr", h.addr))
			} else {
				logger.Errorf("[http] serve error addr=%s err=%+v", h.addr, err)
			}
		}
	}, func(p interface{}) {
		logger.Errorz("[http] serve panic", zap.Any("panic", p))
	})
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (h *HttpServerComponent) Addr() string {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.addr
}

func (h *HttpServerComponent) Stop() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	server := h.server
	if server != nil {
		h.server = nil
		server.Close()
	}
}

func (h *HttpServerComponent) listMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.registry.Snapshot()); err != nil {
		logger.Errorz("[http] encode snapshot error", zap.Error(err))
	}
}

func printVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appconfig.BuildInfo())
}

func startDebugLog(w http.ResponseWriter, _ *http.Request) {
	logger.SetDebugEnabled(true)
	w.Write([]byte("OK"))
}

func stopDebugLog(w http.ResponseWriter, _ *http.Request) {
	logger.SetDebugEnabled(false)
	w.Write([]byte("OK"))
}

func (h *HttpServerComponent) buildHelps() string {
	h.apiMu.RLock()
	defer h.apiMu.RUnlock()

	helps := "Some help msg for hostmonitor:\n"
	const blankNum = 25

	var urls []string
	for k := range h.apis {
		urls = append(urls, k)
	}
	sort.Strings(urls)

	for _, k := range urls {
		v := h.apis[k]
		name := strings.Split(runtime.FuncForPC(reflect.ValueOf(v.F).Pointer()).Name(), ".")
		hName := strings.TrimSuffix(name[len(name)-1], "-fm") + ":"
		usage := fmt.Sprintf("curl %s%s", h.addr, k)
		for _, vv := range v.MoreUsages {
			if vv != "" {
				usage += fmt.Sprintf("\n%s", strings.Repeat(" ", blankNum)+vv)
			}
		}
		helps += fmt.Sprintf("%-25s%s\n", hName, usage)
	}
	return helps
}

func (h *HttpServerComponent) printHelp(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte(h.buildHelps()))
}
