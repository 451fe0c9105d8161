/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package sink drains the sample queue and renders every item to the sample log.
package sink

import (
	"github.com/traas-stack/hostmonitor/pkg/logger"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/queue"
	"github.com/traas-stack/hostmonitor/pkg/stats"
	"go.uber.org/zap"
)

type (
	Renderer func(item queue.Item)

	// Consumer is the single reader of the queue.
	Consumer struct {
		queue  *queue.BlockingQueue
		render Renderer
	}
)

var titles = map[metric.Kind]string{
	metric.CPU:    "CPU Info",
	metric.Memory: "Memory Info",
	metric.IO:     "I/O Info",
}

func NewConsumer(q *queue.BlockingQueue, render Renderer) *Consumer {
	if render == nil {
		render = LogRenderer
	}
	return &Consumer{queue: q, render: render}
}

// Run consumes until the queue is closed and drained.
func (c *Consumer) Run() {
	logger.Infoz("[sink] start")
	rendered := 0
	for {
		item, ok := c.queue.Dequeue()
		if !ok {
			logger.Infof("[sink] queue closed, %d items rendered", rendered)
			return
		}
		c.render(item)
		rendered++
		stats.ItemsConsumedTotal.Inc()
	}
}

func LogRenderer(item queue.Item) {
	if item.IsError() {
		logger.Samplez("ErrInfo", zap.Stringer("metric", item.Kind), zap.String("error", item.Err))
		return
	}
	title, ok := titles[item.Kind]
	if !ok {
		title = item.Kind.String()
	}
	logger.Samplez(title+":\n"+item.Sample.String(), zap.Stringer("metric", item.Kind))
}
