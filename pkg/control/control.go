/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package control implements the control loop: the only goroutine allowed to mutate the registry and drive the workers.
package control

import (
	"context"
	"fmt"
	"github.com/traas-stack/hostmonitor/pkg/bus"
	"github.com/traas-stack/hostmonitor/pkg/command"
	"github.com/traas-stack/hostmonitor/pkg/logger"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/registry"
	"github.com/traas-stack/hostmonitor/pkg/stats"
	"github.com/traas-stack/hostmonitor/pkg/store"
	"go.uber.org/zap"
	"time"
)

type (
	Service struct {
		registry *registry.Registry
		store    store.Store
		bus      *bus.Bus
	}
)

func New(r *registry.Registry, s store.Store, b *bus.Bus) *Service {
	return &Service{
		registry: r,
		store:    s,
		bus:      b,
	}
}

// Launch starts every kind that is not disabled with its configured rate.
func (s *Service) Launch() {
	for _, k := range metric.Kinds() {
		if s.registry.State(k) == metric.Disabled {
			logger.Infoz("[control] skip disabled metric", zap.Stringer("metric", k))
			continue
		}
		w, ok := s.registry.Worker(k)
		if !ok {
			continue
		}
		if _, err := w.Start(s.registry.RefreshRate(k)); err != nil {
			logger.Errorz("[control] launch error", zap.Stringer("metric", k), zap.Error(err))
			continue
		}
		s.registry.SetState(k, metric.Running)
	}
}

// Run serves batches from the bus until ctx is done, then stops every running worker.
func (s *Service) Run(ctx context.Context) error {
	logger.Infoz("[control] loop start")
	defer s.shutdown()

	for {
		batch, err := s.bus.Receive(ctx)
		if err != nil {
			return nil
		}
		resp := s.Handle(batch)
		if err := s.bus.Reply(ctx, resp); err != nil {
			return nil
		}
	}
}

// Handle applies batch in order and returns the non-empty response lines in the same order.
func (s *Service) Handle(batch []command.Command) []string {
	begin := time.Now()
	var lines []string
	for i := range batch {
		c := &batch[i]
		stats.CommandsTotal.WithLabelValues(c.Type.String()).Inc()
		for _, line := range s.dispatch(c) {
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	logger.Infoz("[control] handle batch",
		zap.Int("commands", len(batch)),
		zap.Strings("resp", lines),
		zap.Duration("cost", time.Since(begin)))
	return lines
}

func (s *Service) dispatch(c *command.Command) []string {
	switch c.Type {
	case command.Start:
		return []string{s.start(c)}
	case command.Stop:
		return []string{s.stop(c)}
	case command.List:
		return s.list(c)
	case command.Set:
		return s.set(c)
	case command.Store:
		return []string{s.save()}
	}
	return nil
}

func (s *Service) start(c *command.Command) string {
	k := *c.Kind
	w, ok := s.registry.Worker(k)
	if !ok {
		return fmt.Sprintf("No metric '%s'", k)
	}
	current := s.registry.RefreshRate(k)

	switch s.registry.State(k) {
	case metric.Running:
		if c.Rate == nil {
			return fmt.Sprintf("Metric '%s' already running", k)
		}
		if *c.Rate == current {
			return fmt.Sprintf("'%s' metric already running with rate '%d'", k, current)
		}
		w.SetRate(*c.Rate)
		s.registry.SetRefreshRate(k, *c.Rate)
		return fmt.Sprintf("'%s' metric 'rate' is set to '%d'", k, *c.Rate)
	case metric.Disabled:
		return fmt.Sprintf("Metric '%s' disabled", k)
	}

	rate := current
	if c.Rate != nil {
		rate = *c.Rate
	}
	msg, err := w.Start(rate)
	if err != nil {
		return msg
	}
	s.registry.SetRefreshRate(k, rate)
	s.registry.SetState(k, metric.Running)
	return msg
}

func (s *Service) stop(c *command.Command) string {
	k := *c.Kind
	w, ok := s.registry.Worker(k)
	if !ok {
		return "All metrics already stopped"
	}

	switch s.registry.State(k) {
	case metric.Running:
		// a join failure is only reported; the task is gone either way
		msg, _ := w.Stop()
		s.registry.SetState(k, metric.Stopped)
		return msg
	case metric.Stopped:
		return fmt.Sprintf("Metric '%s' already stopped", k)
	case metric.Disabled:
		return fmt.Sprintf("Metric '%s' disabled", k)
	default:
		return fmt.Sprintf("Metric '%s' is not running", k)
	}
}

func (s *Service) list(c *command.Command) []string {
	if c.State != nil {
		kinds := s.registry.KindsIn(*c.State)
		if len(kinds) == 0 {
			return []string{fmt.Sprintf("No metrics in state '%s'", *c.State)}
		}
		lines := make([]string, 0, len(kinds))
		for _, k := range kinds {
			lines = append(lines, s.describe(k))
		}
		return lines
	}
	return []string{s.describe(*c.Kind)}
}

func (s *Service) describe(k metric.Kind) string {
	return fmt.Sprintf("Metric '%s' is in state '%s' rate '%d'", k, s.registry.State(k), s.registry.RefreshRate(k))
}

// set applies enabled before rate. Each field yields one line.
// enabled=true starts any kind that is not running, enabled=false stops and disables it.
func (s *Service) set(c *command.Command) []string {
	k := *c.Kind
	w, ok := s.registry.Worker(k)
	if !ok {
		return []string{fmt.Sprintf("No metric '%s'", k)}
	}
	var lines []string

	if c.Enabled != nil {
		enabled := *c.Enabled
		if enabled != s.registry.Enabled(k) {
			s.registry.SetEnabled(k, enabled)
			lines = append(lines, fmt.Sprintf("'%s' metric 'enabled' is set to '%t'", k, enabled))
		} else {
			lines = append(lines, fmt.Sprintf("'%s' metric 'enabled' is already '%t'", k, enabled))
		}

		state := s.registry.State(k)
		switch {
		case !enabled && state != metric.Disabled:
			if state == metric.Running {
				msg, _ := w.Stop()
				lines = append(lines, msg)
			}
			s.registry.SetState(k, metric.Disabled)
		case enabled && state != metric.Running:
			msg, err := w.Start(s.registry.RefreshRate(k))
			lines = append(lines, msg)
			if err == nil {
				s.registry.SetState(k, metric.Running)
			}
		}
	}

	if c.Rate != nil {
		rate := *c.Rate
		if rate != s.registry.RefreshRate(k) {
			s.registry.SetRefreshRate(k, rate)
			if s.registry.State(k) == metric.Running {
				w.SetRate(rate)
			}
			lines = append(lines, fmt.Sprintf("'%s' metric 'rate' is set to '%d'", k, rate))
		} else {
			lines = append(lines, fmt.Sprintf("'%s' metric 'rate' is already '%d'", k, rate))
		}
	}

	return lines
}

func (s *Service) save() string {
	if err := s.store.Save(s.registry.Configs()); err != nil {
		logger.Errorz("[control] store config error", zap.Error(err))
		return "Error: " + err.Error()
	}
	return "Config successfully saved"
}

func (s *Service) shutdown() {
	for _, k := range metric.Kinds() {
		if s.registry.State(k) != metric.Running {
			continue
		}
		if w, ok := s.registry.Worker(k); ok {
			msg, _ := w.Stop()
			logger.Infoz("[control] shutdown", zap.Stringer("metric", k), zap.String("result", msg))
		}
		s.registry.SetState(k, metric.Stopped)
	}
	logger.Infoz("[control] loop stopped")
}
