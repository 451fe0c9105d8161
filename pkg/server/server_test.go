/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package server

import (
	"context"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traas-stack/hostmonitor/pkg/bus"
	"github.com/traas-stack/hostmonitor/pkg/client"
	"github.com/traas-stack/hostmonitor/pkg/collector"
	"github.com/traas-stack/hostmonitor/pkg/control"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/queue"
	"github.com/traas-stack/hostmonitor/pkg/registry"
	"github.com/traas-stack/hostmonitor/pkg/store"
	"github.com/traas-stack/hostmonitor/pkg/worker"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type textSample string

func (s textSample) String() string {
	return string(s)
}

// startMonitor wires a control loop and a control server on a temp socket.
func startMonitor(t *testing.T) (string, *registry.Registry) {
	dir := t.TempDir()
	r := registry.New(metric.DefaultConfigs())
	q := queue.New()
	for _, k := range metric.Kinds() {
		c := collector.Func(func(ctx context.Context) (fmt.Stringer, error) {
			return textSample("ok"), nil
		})
		r.AddWorker(worker.New(k, c, q, worker.WithUnit(time.Millisecond)))
	}
	b := bus.New()
	svc := control.New(r, store.NewFileStore(filepath.Join(dir, "lkmconfig.toml")), b)

	socket := filepath.Join(dir, "ctl.sock")
	s := New(Config{SocketPath: socket}, b)
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	serveDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		svc.Run(ctx)
	}()
	go func() {
		defer close(serveDone)
		s.Serve(ctx)
	}()
	t.Cleanup(func() {
		s.Stop()
		cancel()
		<-serveDone
		<-loopDone
		q.Close()
	})
	return socket, r
}

func send(t *testing.T, socket, line string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Send(ctx, socket, line)
	require.NoError(t, err)
	return resp
}

func TestFormatResponse(t *testing.T) {
	assert.Equal(t, "a;b\n", FormatResponse([]string{"a", "", "  ", "b"}))
	assert.Equal(t, "\n", FormatResponse(nil))
}

func TestControlServer_StartAll(t *testing.T) {
	socket, r := startMonitor(t)

	assert.Equal(t, []string{
		"Metric 'cpu' started with rate '1'",
		"Metric 'memory' started with rate '1'",
		"Metric 'io' started with rate '1'",
	}, send(t, socket, "start"))
	assert.Equal(t, metric.Running, r.State(metric.IO))

	assert.Equal(t, []string{"Metric 'io' stopped"}, send(t, socket, "stop io"))
	assert.Equal(t, []string{"Metric 'io' already stopped"}, send(t, socket, "stop io"))
}

func TestControlServer_SetThenList(t *testing.T) {
	socket, _ := startMonitor(t)

	send(t, socket, "set cpu false")
	send(t, socket, "set cpu 5 true")
	assert.Equal(t, []string{"Metric 'cpu' is in state 'running' rate '5'"}, send(t, socket, "list cpu"))
}

func TestControlServer_ProtocolErrors(t *testing.T) {
	socket, _ := startMonitor(t)

	assert.Equal(t, []string{"Error: rate or enabled is required"}, send(t, socket, "set cpu"))
	assert.Equal(t, []string{"Error: invalid metric 'gpu'"}, send(t, socket, "start gpu"))
	assert.Empty(t, send(t, socket, "reboot"))
}

func TestControlServer_EmptyRequest(t *testing.T) {
	socket, _ := startMonitor(t)

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	conn.Close()

	// the listener keeps serving after a peer that sent nothing
	assert.Equal(t, []string{"No metrics in state 'running'"}, send(t, socket, "list running"))
}

func TestControlServer_Store(t *testing.T) {
	socket, _ := startMonitor(t)
	send(t, socket, "set memory 12")
	assert.Equal(t, []string{"Config successfully saved"}, send(t, socket, "store"))

	loaded, err := store.NewFileStore(filepath.Join(filepath.Dir(socket), "lkmconfig.toml")).Load()
	require.NoError(t, err)
	assert.Equal(t, uint8(12), loaded[metric.Memory].RefreshRate)
}

func TestControlServer_StaleSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "stale.sock")
	require.NoError(t, os.WriteFile(socket, []byte("left over"), 0644))

	s := New(Config{SocketPath: socket, MaxRequestsPerSecond: 100}, bus.New())
	require.NoError(t, s.Listen())
	s.Stop()
	// a second Stop is a no-op
	s.Stop()
}
