/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package bus links the control session handler to the control loop.
// One channel carries command batches inbound, the other carries response batches outbound.
// Only one request is in flight at a time, so responses need no correlation id.
package bus

import (
	"context"
	"github.com/traas-stack/hostmonitor/pkg/command"
)

type (
	Bus struct {
		inbound  chan []command.Command
		outbound chan []string
	}
)

func New() *Bus {
	return &Bus{
		inbound:  make(chan []command.Command),
		outbound: make(chan []string),
	}
}

// Submit publishes batch and waits for its response. It is called by the session handler.
// ctx only guards process shutdown; a live control loop always answers.
func (b *Bus) Submit(ctx context.Context, batch []command.Command) ([]string, error) {
	select {
	case b.inbound <- batch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-b.outbound:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Receive waits for the next batch. It is called by the control loop.
func (b *Bus) Receive(ctx context.Context) ([]command.Command, error) {
	select {
	case batch := <-b.inbound:
		return batch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply hands the response of the last received batch back to the session handler.
func (b *Bus) Reply(ctx context.Context, resp []string) error {
	select {
	case b.outbound <- resp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
