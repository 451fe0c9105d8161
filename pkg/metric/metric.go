/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package metric holds the vocabulary shared by every part of the monitor: metric kinds, their lifecycle states and per-kind settings.
package metric

import (
	"fmt"
)

const (
	CPU Kind = iota
	Memory
	IO
)

const (
	Initialized State = iota
	Running
	Stopped
	Disabled
)

const (
	DefaultRefreshRate uint8 = 1
)

type (
	// Kind identifies a sampling domain.
	Kind int
	// State is the lifecycle state of a metric's worker.
	State int

	Config struct {
		Enabled     bool  `json:"enabled" toml:"enabled"`
		RefreshRate uint8 `json:"refresh_rate" toml:"refresh_rate"`
	}

	// Configs is the persisted setting of every kind, indexed by Kind.
	Configs map[Kind]Config
)

var (
	kinds      = []Kind{CPU, Memory, IO}
	kindNames  = map[Kind]string{CPU: "cpu", Memory: "memory", IO: "io"}
	stateNames = map[State]string{
		Initialized: "initialized",
		Running:     "running",
		Stopped:     "stopped",
		Disabled:    "disabled",
	}
)

// Kinds returns all kinds in registry order.
func Kinds() []Kind {
	ret := make([]Kind, len(kinds))
	copy(ret, kinds)
	return ret
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

func ParseState(s string) (State, bool) {
	for st, name := range stateNames {
		if name == s {
			return st, true
		}
	}
	return 0, false
}

func DefaultConfig() Config {
	return Config{Enabled: true, RefreshRate: DefaultRefreshRate}
}

// DefaultConfigs returns enabled=true, rate=1 for every kind.
func DefaultConfigs() Configs {
	c := make(Configs, len(kinds))
	for _, k := range kinds {
		c[k] = DefaultConfig()
	}
	return c
}

// InitialState is Initialized for an enabled kind, Disabled otherwise.
func (c Config) InitialState() State {
	if c.Enabled {
		return Initialized
	}
	return Disabled
}

func (c Configs) Clone() Configs {
	ret := make(Configs, len(c))
	for k, v := range c {
		ret[k] = v
	}
	return ret
}
