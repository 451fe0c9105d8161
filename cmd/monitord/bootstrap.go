/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package main

import (
	"context"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/traas-stack/hostmonitor/pkg/appconfig"
	"github.com/traas-stack/hostmonitor/pkg/bus"
	"github.com/traas-stack/hostmonitor/pkg/collector"
	"github.com/traas-stack/hostmonitor/pkg/control"
	"github.com/traas-stack/hostmonitor/pkg/httpserver"
	"github.com/traas-stack/hostmonitor/pkg/logger"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/queue"
	"github.com/traas-stack/hostmonitor/pkg/registry"
	"github.com/traas-stack/hostmonitor/pkg/server"
	"github.com/traas-stack/hostmonitor/pkg/sink"
	"github.com/traas-stack/hostmonitor/pkg/stats"
	"github.com/traas-stack/hostmonitor/pkg/store"
	"github.com/traas-stack/hostmonitor/pkg/worker"
	"go.uber.org/zap"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func bootstrap() error {
	begin := time.Now()

	if err := appconfig.SetupAppConfig(); err != nil {
		return err
	}
	cfg := appconfig.StdMonitorConfig

	if err := logger.SetupZapLogger(cfg.Log.Dir, appconfig.IsDev()); err != nil {
		return errors.Wrap(err, "setup logger")
	}
	defer logger.Sync()

	if os.Getenv("DEBUG") == "true" {
		logger.SetDebugEnabled(true)
	}
	logger.Infoz("[bootstrap] config", zap.Any("config", cfg), zap.Bool("debug", logger.IsDebugEnabled()))

	unit, err := cfg.Unit()
	if err != nil {
		return err
	}

	st := store.NewFileStore(cfg.ConfigPath)
	configs, err := st.Load()
	if err != nil {
		logger.Errorz("[bootstrap] load metric config error, use defaults", zap.String("path", cfg.ConfigPath), zap.Error(err))
		configs = metric.DefaultConfigs()
	}

	q := queue.New()
	stats.RegisterQueueDepth(q.Len)

	reg := registry.New(configs)
	for _, k := range metric.Kinds() {
		c, err := collector.New(k)
		if err != nil {
			return err
		}
		reg.AddWorker(worker.New(k, c, q, worker.WithUnit(unit)))
	}

	b := bus.New()
	svc := control.New(reg, st, b)

	cs := server.New(server.Config{
		SocketPath:           cfg.SocketPath,
		MaxRequestsPerSecond: cfg.MaxRequestsPerSecond,
	}, b)
	if err := cs.Listen(); err != nil {
		return err
	}

	// workers only start once the control socket is bound
	svc.Launch()

	var g run.Group
	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	{
		g.Add(func() error {
			defer close(loopDone)
			return svc.Run(ctx)
		}, func(error) {
			cancel()
		})
	}
	{
		g.Add(func() error {
			return cs.Serve(ctx)
		}, func(error) {
			cs.Stop()
		})
	}
	{
		consumer := sink.NewConsumer(q, nil)
		g.Add(func() error {
			consumer.Run()
			return nil
		}, func(error) {
			// let the control loop stop the workers first, then drain
			<-loopDone
			q.Close()
		})
	}
	if cfg.Http.Enabled {
		hs := httpserver.NewHttpServerComponent(cfg.Http.Addr, reg)
		if err := hs.Start(); err != nil {
			logger.Errorz("[bootstrap] http server error", zap.Error(err))
		} else {
			stop := make(chan struct{})
			g.Add(func() error {
				<-stop
				return nil
			}, func(error) {
				hs.Stop()
				close(stop)
			})
		}
	}
	{
		term := make(chan os.Signal, 16)
		cancelWait := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)
		g.Add(func() error {
			select {
			case sig := <-term:
				logger.Infoz("[monitor] receive stop signal", zap.String("signal", sig.String()))
			case <-cancelWait:
			}
			return nil
		}, func(error) {
			signal.Stop(term)
			close(cancelWait)
		})
	}

	logger.Infoz("[bootstrap] done", zap.Duration("cost", time.Since(begin)))
	err = g.Run()

	logger.Infoz("[monitor] stop done", zap.Duration("uptime", time.Since(begin)))
	return err
}
