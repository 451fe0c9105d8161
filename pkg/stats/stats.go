/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package stats holds the self metrics of the monitor. They are exposed by the http server on /metrics.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Registry = prometheus.NewRegistry()

	SamplesTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostmonitor",
		Name:      "samples_total",
		Help:      "Samples collected per metric.",
	}, []string{"metric"})

	SampleErrorsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostmonitor",
		Name:      "sample_errors_total",
		Help:      "Failed collections per metric.",
	}, []string{"metric"})

	WorkersRunning = promauto.With(Registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hostmonitor",
		Name:      "worker_running",
		Help:      "1 if the sampling task of the metric is active.",
	}, []string{"metric"})

	CommandsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostmonitor",
		Name:      "control_commands_total",
		Help:      "Control commands applied, by command type.",
	}, []string{"command"})

	ControlRequestsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostmonitor",
		Name:      "control_requests_total",
		Help:      "Control connections served, by result.",
	}, []string{"result"})

	ItemsConsumedTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: "hostmonitor",
		Name:      "queue_items_consumed_total",
		Help:      "Queue items rendered by the sink.",
	})
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// RegisterQueueDepth exposes the current length of the sample queue.
func RegisterQueueDepth(f func() int) {
	Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "hostmonitor",
		Name:      "queue_depth",
		Help:      "Items waiting in the sample queue.",
	}, func() float64 {
		return float64(f())
	}))
}
