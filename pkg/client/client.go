/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package client talks to the control socket of a running monitor.
package client

import (
	"bufio"
	"context"
	"github.com/pkg/errors"
	"net"
	"strings"
)

// Send writes line to the control socket and returns the result lines of the response.
// Without a ctx deadline it waits for the reply indefinitely, a stop may take a whole refresh interval.
func Send(ctx context.Context, socketPath string, line string) ([]string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", socketPath)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := conn.Write([]byte(line)); err != nil {
		return nil, errors.Wrap(err, "write request")
	}

	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && resp == "" {
		return nil, errors.Wrap(err, "read response")
	}
	return ParseResponse(resp), nil
}

// ParseResponse splits a response line into its non-empty results.
func ParseResponse(resp string) []string {
	var ret []string
	for _, s := range strings.Split(strings.TrimSpace(resp), ";") {
		if s != "" {
			ret = append(ret, s)
		}
	}
	return ret
}
