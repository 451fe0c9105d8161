/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package worker

import (
	"context"
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traas-stack/hostmonitor/pkg/collector"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/queue"
	"sync/atomic"
	"testing"
	"time"
)

type textSample string

func (s textSample) String() string {
	return string(s)
}

func countingCollector(calls *int32) collector.Collector {
	return collector.Func(func(ctx context.Context) (fmt.Stringer, error) {
		n := atomic.AddInt32(calls, 1)
		return textSample(fmt.Sprintf("sample-%d", n)), nil
	})
}

func TestWorker_StartStop(t *testing.T) {
	var calls int32
	q := queue.New()
	w := New(metric.CPU, countingCollector(&calls), q, WithUnit(time.Millisecond))

	msg, err := w.Start(1)
	require.NoError(t, err)
	assert.Equal(t, "Metric 'cpu' started with rate '1'", msg)
	assert.True(t, w.Running())

	item, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, metric.CPU, item.Kind)
	assert.Equal(t, "sample-1", item.Sample.String())

	msg, err = w.Stop()
	require.NoError(t, err)
	assert.Equal(t, "Metric 'cpu' stopped", msg)
	assert.False(t, w.Running())

	// the task is joined: no more collections after Stop returns
	after := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls))
}

func TestWorker_AlreadyRunning(t *testing.T) {
	var calls int32
	w := New(metric.Memory, countingCollector(&calls), queue.New(), WithUnit(time.Millisecond))

	_, err := w.Start(1)
	require.NoError(t, err)
	msg, err := w.Start(2)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, "Metric 'memory' already running", msg)

	_, err = w.Stop()
	require.NoError(t, err)

	_, err = w.Stop()
	assert.ErrorIs(t, err, ErrNotRunning)

	// restart after stop
	_, err = w.Start(1)
	require.NoError(t, err)
	_, err = w.Stop()
	require.NoError(t, err)
}

func TestWorker_CollectErrorDoesNotStopLoop(t *testing.T) {
	var calls int32
	c := collector.Func(func(ctx context.Context) (fmt.Stringer, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("read /proc failed")
		}
		return textSample("ok"), nil
	})
	q := queue.New()
	w := New(metric.IO, c, q, WithUnit(time.Millisecond))
	_, err := w.Start(1)
	require.NoError(t, err)

	first, _ := q.Dequeue()
	assert.True(t, first.IsError())
	assert.Equal(t, "read /proc failed", first.Err)

	second, _ := q.Dequeue()
	assert.False(t, second.IsError())
	assert.Equal(t, "ok", second.Sample.String())

	_, err = w.Stop()
	require.NoError(t, err)
}

func TestWorker_SetRate(t *testing.T) {
	var calls int32
	w := New(metric.CPU, countingCollector(&calls), queue.New(), WithUnit(time.Millisecond))
	_, err := w.Start(1)
	require.NoError(t, err)

	// 200ms per interval after the rate is adopted
	w.SetRate(200)
	time.Sleep(30 * time.Millisecond)
	before := atomic.LoadInt32(&calls)
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls)-before, int32(1))

	_, err = w.Stop()
	require.NoError(t, err)
}

func TestWorker_JoinFailed(t *testing.T) {
	c := collector.Func(func(ctx context.Context) (fmt.Stringer, error) {
		panic("collector bug")
	})
	w := New(metric.CPU, c, queue.New(), WithUnit(time.Millisecond))
	_, err := w.Start(1)
	require.NoError(t, err)

	msg, err := w.Stop()
	assert.ErrorIs(t, err, ErrJoinFailed)
	assert.Equal(t, "Error while joining thread", msg)
	assert.False(t, w.Running())
}
