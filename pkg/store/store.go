/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package store persists the per-metric config as a TOML file.
package store

import (
	"bytes"
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/traas-stack/hostmonitor/pkg/logger"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/util"
	"go.uber.org/zap"
	"os"
)

const (
	DefaultPath = "/etc/lkmconfig.toml"
)

type (
	Store interface {
		// Load returns the saved configs. A missing file yields the defaults.
		Load() (metric.Configs, error)
		Save(metric.Configs) error
	}

	FileStore struct {
		Path string
	}

	fileContent struct {
		Cpu    metric.Config `toml:"cpu_config"`
		Memory metric.Config `toml:"memory_config"`
		IO     metric.Config `toml:"io_config"`
	}
)

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{Path: path}
}

func (s *FileStore) Load() (metric.Configs, error) {
	f, err := util.OpenFileReadonly(s.Path)
	if os.IsNotExist(err) {
		logger.Infoz("[store] config file not found, use defaults", zap.String("path", s.Path))
		return metric.DefaultConfigs(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()

	defaults := metric.DefaultConfigs()
	content := fileContent{
		Cpu:    defaults[metric.CPU],
		Memory: defaults[metric.Memory],
		IO:     defaults[metric.IO],
	}
	if _, err := toml.DecodeReader(f, &content); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	configs := metric.Configs{
		metric.CPU:    content.Cpu,
		metric.Memory: content.Memory,
		metric.IO:     content.IO,
	}
	for k, c := range configs {
		if c.RefreshRate == 0 {
			logger.Warnf("[store] invalid refresh_rate of %s in %s, use default %d", k, s.Path, metric.DefaultRefreshRate)
			c.RefreshRate = metric.DefaultRefreshRate
			configs[k] = c
		}
	}
	logger.Infoz("[store] load config", zap.String("path", s.Path), zap.Any("config", content))
	return configs, nil
}

// Save overwrites the file with configs. Nothing is retried.
func (s *FileStore) Save(configs metric.Configs) error {
	defaults := metric.DefaultConfigs()
	get := func(k metric.Kind) metric.Config {
		if c, ok := configs[k]; ok {
			return c
		}
		return defaults[k]
	}
	content := fileContent{
		Cpu:    get(metric.CPU),
		Memory: get(metric.Memory),
		IO:     get(metric.IO),
	}

	buf := bytes.NewBuffer(nil)
	if err := toml.NewEncoder(buf).Encode(content); err != nil {
		return errors.Wrap(err, "failed to serialize config file")
	}

	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to write config file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	logger.Infoz("[store] save config", zap.String("path", s.Path), zap.Any("config", content))
	return nil
}
