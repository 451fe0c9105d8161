/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package queue

import (
	"fmt"
	"github.com/eapache/queue"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"sync"
)

type (
	// Item is either a sample collected for Kind or an error message.
	Item struct {
		Kind   metric.Kind
		Sample fmt.Stringer
		Err    string
	}

	// BlockingQueue is an unbounded FIFO shared by many producers and one consumer.
	// Producers never block on a full queue. A consumer stall lets the buffer grow without limit.
	BlockingQueue struct {
		mutex  sync.Mutex
		cond   *sync.Cond
		buf    *queue.Queue
		closed bool
	}
)

func SampleItem(kind metric.Kind, sample fmt.Stringer) Item {
	return Item{Kind: kind, Sample: sample}
}

func ErrorItem(kind metric.Kind, err error) Item {
	return Item{Kind: kind, Err: err.Error()}
}

func (i Item) IsError() bool {
	return i.Sample == nil
}

func New() *BlockingQueue {
	q := &BlockingQueue{buf: queue.New()}
	q.cond = sync.NewCond(&q.mutex)
	return q
}

// Enqueue appends item to the tail. Items offered after Close are dropped.
func (q *BlockingQueue) Enqueue(item Item) {
	q.mutex.Lock()
	if q.closed {
		q.mutex.Unlock()
		return
	}
	q.buf.Add(item)
	q.mutex.Unlock()
	q.cond.Signal()
}

// Dequeue blocks until an item is available and pops it.
// It returns false once the queue is closed and drained.
func (q *BlockingQueue) Dequeue() (Item, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for q.buf.Length() == 0 {
		if q.closed {
			return Item{}, false
		}
		q.cond.Wait()
	}
	return q.buf.Remove().(Item), true
}

func (q *BlockingQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.buf.Length()
}

// Close wakes every waiting consumer. Items already queued can still be dequeued.
func (q *BlockingQueue) Close() {
	q.mutex.Lock()
	q.closed = true
	q.mutex.Unlock()
	q.cond.Broadcast()
}
