/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package registry

import (
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/worker"
	"sync"
)

type (
	// Registry holds the workers and the config/state of every metric kind.
	// Only the control loop mutates it. Other goroutines read through Snapshot.
	Registry struct {
		mutex   sync.RWMutex
		configs metric.Configs
		states  map[metric.Kind]metric.State
		workers map[metric.Kind]*worker.Worker
	}

	// Status is an immutable view of one kind.
	Status struct {
		Kind        string `json:"metric"`
		State       string `json:"state"`
		Enabled     bool   `json:"enabled"`
		RefreshRate uint8  `json:"refresh_rate"`
	}
)

// New builds a registry from the loaded configs. Missing kinds get the defaults.
// Every kind starts in Initialized when enabled, otherwise in Disabled.
func New(configs metric.Configs) *Registry {
	r := &Registry{
		configs: make(metric.Configs),
		states:  make(map[metric.Kind]metric.State),
		workers: make(map[metric.Kind]*worker.Worker),
	}
	for _, k := range metric.Kinds() {
		c, ok := configs[k]
		if !ok {
			c = metric.DefaultConfig()
		}
		r.configs[k] = c
		r.states[k] = c.InitialState()
	}
	return r
}

func (r *Registry) AddWorker(w *worker.Worker) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.workers[w.Kind()] = w
}

func (r *Registry) Worker(kind metric.Kind) (*worker.Worker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	w, ok := r.workers[kind]
	return w, ok
}

func (r *Registry) State(kind metric.Kind) metric.State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.states[kind]
}

func (r *Registry) SetState(kind metric.Kind, state metric.State) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.states[kind] = state
}

func (r *Registry) RefreshRate(kind metric.Kind) uint8 {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.configs[kind].RefreshRate
}

func (r *Registry) SetRefreshRate(kind metric.Kind, rate uint8) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	c := r.configs[kind]
	c.RefreshRate = rate
	r.configs[kind] = c
}

func (r *Registry) Enabled(kind metric.Kind) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.configs[kind].Enabled
}

func (r *Registry) SetEnabled(kind metric.Kind, enabled bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	c := r.configs[kind]
	c.Enabled = enabled
	r.configs[kind] = c
}

// Configs returns a copy of the persisted part of the registry.
func (r *Registry) Configs() metric.Configs {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.configs.Clone()
}

// KindsIn returns, in registry order, the kinds currently in state.
func (r *Registry) KindsIn(state metric.State) []metric.Kind {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var ret []metric.Kind
	for _, k := range metric.Kinds() {
		if r.states[k] == state {
			ret = append(ret, k)
		}
	}
	return ret
}

// Snapshot copies the status of every kind, in registry order.
func (r *Registry) Snapshot() []Status {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	ret := make([]Status, 0, len(r.states))
	for _, k := range metric.Kinds() {
		c := r.configs[k]
		ret = append(ret, Status{
			Kind:        k.String(),
			State:       r.states[k].String(),
			Enabled:     c.Enabled,
			RefreshRate: c.RefreshRate,
		})
	}
	return ret
}
