/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package worker

import (
	"context"
	"errors"
	"fmt"
	"github.com/traas-stack/hostmonitor/pkg/collector"
	"github.com/traas-stack/hostmonitor/pkg/logger"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/queue"
	"github.com/traas-stack/hostmonitor/pkg/stats"
	"github.com/traas-stack/hostmonitor/pkg/util"
	"go.uber.org/zap"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("worker already running")
	ErrNotRunning     = errors.New("worker not running")
	ErrJoinFailed     = errors.New("Error while joining thread")
)

type (
	// directive is what the control slot carries: either stop or a new rate.
	directive struct {
		stop bool
		rate uint8
	}

	// Worker owns the sampling task of one metric kind.
	// Its methods must be called from a single goroutine (the control loop).
	// The sampling task is created by Start and destroyed by Stop; the Worker itself lives for the whole process.
	Worker struct {
		kind      metric.Kind
		collector collector.Collector
		queue     *queue.BlockingQueue
		unit      time.Duration
		slot      chan directive
		handle    *util.JoinHandle
	}

	Option func(*Worker)
)

// WithUnit sets the duration of one rate step. It defaults to one second.
func WithUnit(unit time.Duration) Option {
	return func(w *Worker) {
		w.unit = unit
	}
}

func New(kind metric.Kind, c collector.Collector, q *queue.BlockingQueue, opts ...Option) *Worker {
	w := &Worker{
		kind:      kind,
		collector: c,
		queue:     q,
		unit:      time.Second,
		slot:      make(chan directive, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Kind() metric.Kind {
	return w.kind
}

// Running reports whether a sampling task is active (started and not yet joined).
func (w *Worker) Running() bool {
	return w.handle != nil
}

// Start spawns the sampling task. It returns as soon as the goroutine is created.
func (w *Worker) Start(rate uint8) (string, error) {
	if w.handle != nil {
		return fmt.Sprintf("Metric '%s' already running", w.kind), ErrAlreadyRunning
	}
	w.drain()
	w.handle = util.Spawn(func() {
		w.loop(rate)
	})
	stats.WorkersRunning.WithLabelValues(w.kind.String()).Set(1)
	logger.Infoz("[worker] start", zap.Stringer("metric", w.kind), zap.Uint8("rate", rate))
	return fmt.Sprintf("Metric '%s' started with rate '%d'", w.kind, rate), nil
}

// Stop asks the task to exit and joins it.
// The task only observes the request after its current sleep, so Stop may block for up to one interval.
// A panicked task yields ErrJoinFailed; the worker is considered stopped either way.
func (w *Worker) Stop() (string, error) {
	if w.handle == nil {
		return fmt.Sprintf("Metric '%s' already stopped", w.kind), ErrNotRunning
	}
	w.send(directive{stop: true})

	begin := time.Now()
	err := w.handle.Join()
	w.handle = nil
	w.drain()
	stats.WorkersRunning.WithLabelValues(w.kind.String()).Set(0)

	if err != nil {
		fields := []zap.Field{zap.Stringer("metric", w.kind), zap.Error(err)}
		var pe *util.PanicError
		if errors.As(err, &pe) {
			fields = append(fields, zap.String("stack", pe.Stack))
		}
		logger.Errorz("[worker] join error", fields...)
		return ErrJoinFailed.Error(), ErrJoinFailed
	}
	logger.Infoz("[worker] stop", zap.Stringer("metric", w.kind), zap.Duration("cost", time.Since(begin)))
	return fmt.Sprintf("Metric '%s' stopped", w.kind), nil
}

// SetRate hands a new rate to the task. It is adopted at the next polling boundary and never interrupts a sample.
func (w *Worker) SetRate(rate uint8) {
	if w.handle == nil {
		return
	}
	w.send(directive{rate: rate})
	logger.Infoz("[worker] set rate", zap.Stringer("metric", w.kind), zap.Uint8("rate", rate))
}

// send replaces any pending directive. The control loop is the only sender, so the slot is free after drain.
func (w *Worker) send(d directive) {
	w.drain()
	w.slot <- d
}

func (w *Worker) drain() {
	select {
	case <-w.slot:
	default:
	}
}

func (w *Worker) loop(rate uint8) {
	ctx := context.Background()
	for {
		w.collectOnce(ctx)

		time.Sleep(time.Duration(rate) * w.unit)

		select {
		case d := <-w.slot:
			if d.stop {
				return
			}
			rate = d.rate
		default:
		}
	}
}

func (w *Worker) collectOnce(ctx context.Context) {
	sample, err := w.collector.Collect(ctx)
	if err != nil {
		stats.SampleErrorsTotal.WithLabelValues(w.kind.String()).Inc()
		logger.Debugz("[worker] collect error", zap.Stringer("metric", w.kind), zap.Error(err))
		w.queue.Enqueue(queue.ErrorItem(w.kind, err))
		return
	}
	stats.SamplesTotal.WithLabelValues(w.kind.String()).Inc()
	w.queue.Enqueue(queue.SampleItem(w.kind, sample))
}
