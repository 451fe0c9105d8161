/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package store

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.toml"))
	c, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, metric.DefaultConfigs(), c)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lkmconfig.toml")
	s := NewFileStore(path)

	saved := metric.Configs{
		metric.CPU:    {Enabled: true, RefreshRate: 5},
		metric.Memory: {Enabled: false, RefreshRate: 255},
		metric.IO:     {Enabled: true, RefreshRate: 1},
	}
	require.NoError(t, s.Save(saved))

	// a fresh store on the same file behaves like a restarted process
	loaded, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[cpu_config]")
	assert.Contains(t, string(b), "refresh_rate = 255")
}

func TestFileStore_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lkmconfig.toml")
	require.NoError(t, os.WriteFile(path, []byte("[io_config]\nenabled = false\nrefresh_rate = 3\n"), 0644))

	c, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, metric.Config{Enabled: false, RefreshRate: 3}, c[metric.IO])
	assert.Equal(t, metric.DefaultConfig(), c[metric.CPU])
}

func TestFileStore_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lkmconfig.toml")
	require.NoError(t, os.WriteFile(path, []byte("[cpu_config]\nrefresh_rate = 300\n"), 0644))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestFileStore_SaveCreateError(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "no", "such", "dir", "lkmconfig.toml"))
	err := s.Save(metric.DefaultConfigs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config file")
}
