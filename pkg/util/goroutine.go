/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package util

import (
	"fmt"
	"runtime"
)

type (
	// PanicError carries a recovered panic value and the stack of the panicking goroutine.
	PanicError struct {
		Value interface{}
		Stack string
	}
	// JoinHandle joins a goroutine started by Spawn.
	JoinHandle struct {
		done chan struct{}
		err  error
	}
)

func (e *PanicError) Error() string {
	return fmt.Sprintf("goroutine panic: %v", e.Value)
}

func GoWithRecover(handler func(), recoverHandlers ...func(p interface{})) {
	go WithRecover(handler, recoverHandlers...)
}

func WithRecover(handler func(), recoverHandlers ...func(p interface{})) {
	defer func() {
		if r := recover(); r != nil {
			for _, f := range recoverHandlers {
				if f != nil {
					f(r)
				}
			}
		}
	}()
	handler()
}

// Spawn runs handler in a new goroutine. A panic inside handler is recovered and reported by Join.
func Spawn(handler func()) *JoinHandle {
	h := &JoinHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		WithRecover(handler, func(p interface{}) {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			h.err = &PanicError{Value: p, Stack: string(buf)}
		})
	}()
	return h
}

// Join waits for the goroutine to exit.
func (h *JoinHandle) Join() error {
	<-h.done
	return h.err
}
