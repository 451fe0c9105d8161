/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package sink

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"github.com/traas-stack/hostmonitor/pkg/queue"
	"testing"
	"time"
)

type textSample string

func (s textSample) String() string {
	return string(s)
}

func TestConsumer_DrainsInOrder(t *testing.T) {
	q := queue.New()
	var got []queue.Item
	c := NewConsumer(q, func(item queue.Item) {
		got = append(got, item)
	})

	q.Enqueue(queue.SampleItem(metric.CPU, textSample("a")))
	q.Enqueue(queue.ErrorItem(metric.IO, errors.New("b")))
	q.Enqueue(queue.SampleItem(metric.Memory, textSample("c")))
	q.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not exit")
	}

	if assert.Len(t, got, 3) {
		assert.Equal(t, "a", got[0].Sample.String())
		assert.Equal(t, "b", got[1].Err)
		assert.Equal(t, "c", got[2].Sample.String())
	}
}

func TestLogRenderer(t *testing.T) {
	assert.NotPanics(t, func() {
		LogRenderer(queue.SampleItem(metric.CPU, textSample(" cpu0: Load: 1.00%\n")))
		LogRenderer(queue.ErrorItem(metric.IO, errors.New("disk gone")))
		LogRenderer(queue.SampleItem(metric.Kind(9), textSample("x")))
	})
}
