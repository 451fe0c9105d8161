/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package collector

import (
	"context"
	"fmt"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"sync"
)

const (
	mb = 1024 * 1024
)

type (
	// Collector takes one sample per call.
	// Callers must guarantee that calls on the same Collector are serial.
	Collector interface {
		Collect(ctx context.Context) (fmt.Stringer, error)
	}
	Factory func() Collector
)

var (
	factories   = map[metric.Kind]Factory{}
	factoriesMu sync.RWMutex
)

func Register(kind metric.Kind, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[kind] = f
}

func New(kind metric.Kind) (Collector, error) {
	factoriesMu.RLock()
	f, ok := factories[kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no collector for metric '%s'", kind)
	}
	return f(), nil
}

// Func adapts a plain function to Collector.
type Func func(ctx context.Context) (fmt.Stringer, error)

func (f Func) Collect(ctx context.Context) (fmt.Stringer, error) {
	return f(ctx)
}
