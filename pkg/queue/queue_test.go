/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package queue

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"strconv"
	"sync"
	"testing"
	"time"
)

type textSample string

func (s textSample) String() string {
	return string(s)
}

func TestBlockingQueue_FIFO(t *testing.T) {
	q := New()
	q.Enqueue(SampleItem(metric.CPU, textSample("e1")))
	q.Enqueue(ErrorItem(metric.Memory, errors.New("e2")))
	q.Enqueue(SampleItem(metric.IO, textSample("e3")))
	assert.Equal(t, 3, q.Len())

	i1, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "e1", i1.Sample.String())
	assert.False(t, i1.IsError())

	i2, _ := q.Dequeue()
	assert.True(t, i2.IsError())
	assert.Equal(t, "e2", i2.Err)
	assert.Equal(t, metric.Memory, i2.Kind)

	i3, _ := q.Dequeue()
	assert.Equal(t, "e3", i3.Sample.String())
	assert.Equal(t, 0, q.Len())
}

func TestBlockingQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()
	got := make(chan Item, 1)
	go func() {
		item, _ := q.Dequeue()
		got <- item
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned on an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	q.Enqueue(SampleItem(metric.CPU, textSample("late")))
	select {
	case item := <-got:
		assert.Equal(t, "late", item.Sample.String())
	case <-time.After(time.Second):
		t.Fatal("dequeue was not woken")
	}
}

func TestBlockingQueue_PerProducerOrder(t *testing.T) {
	q := New()
	const producers = 3
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(kind metric.Kind) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(SampleItem(kind, textSample(strconv.Itoa(i))))
			}
		}(metric.Kind(p))
	}
	wg.Wait()

	last := map[metric.Kind]int{}
	for i := 0; i < producers*perProducer; i++ {
		item, ok := q.Dequeue()
		require.True(t, ok)
		n, err := strconv.Atoi(item.Sample.String())
		require.NoError(t, err)
		if prev, exist := last[item.Kind]; exist {
			assert.Greater(t, n, prev)
		}
		last[item.Kind] = n
	}
}

func TestBlockingQueue_Close(t *testing.T) {
	q := New()
	q.Enqueue(SampleItem(metric.CPU, textSample("left")))

	done := make(chan struct{})
	q.Close()
	go func() {
		defer close(done)
		item, ok := q.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, "left", item.Sample.String())
		_, ok = q.Dequeue()
		assert.False(t, ok)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer not released by Close")
	}

	q.Enqueue(SampleItem(metric.CPU, textSample("dropped")))
	assert.Equal(t, 0, q.Len())
}
