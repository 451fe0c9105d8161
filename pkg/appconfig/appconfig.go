/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package appconfig holds the process level settings of the monitor. It is initialized first and must not depend on other business packages.
package appconfig

import (
	"fmt"
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultSocketPath = "/var/run/lkmonitor.sock"
	defaultConfigPath = "/etc/lkmconfig.toml"
	defaultLogDir     = "logs"
	defaultHttpAddr   = "127.0.0.1:9117"
	defaultRateUnit   = time.Second
)

var std = struct {
	dev bool
}{
	dev: false,
}

var (
	StdMonitorConfig = DefaultMonitorConfig()
)

type (
	MonitorConfig struct {
		// SocketPath is the unix socket of the control session.
		SocketPath string `json:"socketPath" yaml:"socketPath" toml:"socketPath"`
		// ConfigPath is the metric config file written by the store command.
		ConfigPath string     `json:"configPath" yaml:"configPath" toml:"configPath"`
		Log        LogConfig  `json:"log" yaml:"log" toml:"log"`
		Http       HttpConfig `json:"http" yaml:"http" toml:"http"`
		// MaxRequestsPerSecond throttles control connections, 0 means unlimited.
		MaxRequestsPerSecond int `json:"maxRequestsPerSecond" yaml:"maxRequestsPerSecond" toml:"maxRequestsPerSecond"`
		// RateUnit is the duration of one refresh rate step, "1s" unless testing.
		RateUnit string `json:"rateUnit" yaml:"rateUnit" toml:"rateUnit"`
		Dev      bool   `json:"dev" yaml:"dev" toml:"dev"`
	}
	LogConfig struct {
		Dir string `json:"dir" yaml:"dir" toml:"dir"`
	}
	HttpConfig struct {
		Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
		Addr    string `json:"addr" yaml:"addr" toml:"addr"`
	}
)

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SocketPath: defaultSocketPath,
		ConfigPath: defaultConfigPath,
		Log:        LogConfig{Dir: defaultLogDir},
		Http:       HttpConfig{Enabled: true, Addr: defaultHttpAddr},
		RateUnit:   defaultRateUnit.String(),
	}
}

func IsDev() bool {
	return std.dev
}

func SetDev(enabled bool) {
	std.dev = enabled
}

// SetupAppConfig loads the config from the working directory and the environment into StdMonitorConfig.
func SetupAppConfig() error {
	c, err := LoadMonitorConfig(".")
	if err != nil {
		return err
	}
	StdMonitorConfig = c
	if c.Dev {
		SetDev(true)
	}
	return nil
}

// LoadMonitorConfig applies, in order: defaults, monitor.yaml (or conf/monitor.yaml), monitor.toml (or conf/monitor.toml), HM_* env.
func LoadMonitorConfig(dir string) (MonitorConfig, error) {
	c := DefaultMonitorConfig()

	// load from config file
	if b, name, err := readFirst(dir, "monitor.yaml", "conf/monitor.yaml"); err == nil {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, errors.Wrapf(err, "fail to parse %s", name)
		}
	}
	if b, name, err := readFirst(dir, "monitor.toml", "conf/monitor.toml"); err == nil {
		if err := toml.Unmarshal(b, &c); err != nil {
			return c, errors.Wrapf(err, "fail to parse %s", name)
		}
	}

	// load from env
	if s := os.Getenv("HM_SOCKET_PATH"); s != "" {
		c.SocketPath = s
	}
	if s := os.Getenv("HM_CONFIG_PATH"); s != "" {
		c.ConfigPath = s
	}
	if s := os.Getenv("HM_LOG_DIR"); s != "" {
		c.Log.Dir = s
	}
	if s := os.Getenv("HM_HTTP_ENABLED"); s != "" {
		c.Http.Enabled = cast.ToBool(s)
	}
	if s := os.Getenv("HM_HTTP_ADDR"); s != "" {
		c.Http.Addr = s
	}
	if s := os.Getenv("HM_MAX_REQUESTS_PER_SECOND"); s != "" {
		n, err := cast.ToIntE(s)
		if err != nil {
			return c, errors.Wrap(err, "HM_MAX_REQUESTS_PER_SECOND")
		}
		c.MaxRequestsPerSecond = n
	}
	if s := os.Getenv("HM_RATE_UNIT"); s != "" {
		c.RateUnit = s
	}
	if s := os.Getenv("HM_DEV"); s != "" {
		c.Dev = cast.ToBool(s)
	}

	if _, err := c.Unit(); err != nil {
		return c, err
	}
	return c, nil
}

// Unit parses RateUnit. An empty value means one second.
func (c *MonitorConfig) Unit() (time.Duration, error) {
	if c.RateUnit == "" {
		return defaultRateUnit, nil
	}
	d, err := cast.ToDurationE(c.RateUnit)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid rateUnit %q", c.RateUnit)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid rateUnit %q", c.RateUnit)
	}
	return d, nil
}

func readFirst(dir string, names ...string) ([]byte, string, error) {
	var lastErr error
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return b, name, nil
		}
		lastErr = err
	}
	return nil, "", lastErr
}
