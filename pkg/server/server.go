/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package server

import (
	"bufio"
	"context"
	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/traas-stack/hostmonitor/pkg/bus"
	"github.com/traas-stack/hostmonitor/pkg/command"
	"github.com/traas-stack/hostmonitor/pkg/logger"
	"github.com/traas-stack/hostmonitor/pkg/stats"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	DefaultSocketPath = "/var/run/lkmonitor.sock"
	separator         = ";"
)

var (
	ErrEmptyRequest = errors.New("empty control request")
)

type (
	Config struct {
		SocketPath string
		// MaxRequestsPerSecond throttles the accept loop. 0 means unlimited.
		MaxRequestsPerSecond int
	}

	// ControlServer serves the control socket. Connections are handled one at a time:
	// one line in, one aggregated line out, then the connection is closed.
	ControlServer struct {
		cfg      Config
		bus      *bus.Bus
		limiter  ratelimit.Limiter
		mutex    sync.Mutex
		listener net.Listener
		stopped  bool
	}
)

func New(cfg Config, b *bus.Bus) *ControlServer {
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultSocketPath
	}
	limiter := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		limiter = ratelimit.New(cfg.MaxRequestsPerSecond)
	}
	return &ControlServer{
		cfg:     cfg,
		bus:     b,
		limiter: limiter,
	}
}

// Listen binds the socket, removing a stale socket file left by a previous process.
func (s *ControlServer) Listen() error {
	if _, err := os.Stat(s.cfg.SocketPath); err == nil {
		if err := os.Remove(s.cfg.SocketPath); err != nil {
			return errors.Wrap(err, "remove stale socket")
		}
	}
	l, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.cfg.SocketPath)
	}

	s.mutex.Lock()
	s.listener = l
	s.mutex.Unlock()

	logger.Infoz("[server] listen", zap.String("socket", s.cfg.SocketPath))
	return nil
}

// Serve accepts connections until Stop is called. ctx is handed to the bus so that a pending request is released on shutdown.
func (s *ControlServer) Serve(ctx context.Context) error {
	s.mutex.Lock()
	l := s.listener
	s.mutex.Unlock()
	if l == nil {
		return errors.New("server is not listening")
	}

	b := &backoff.Backoff{
		Factor: 2,
		Jitter: true,
		Min:    5 * time.Millisecond,
		Max:    time.Second,
	}
	for {
		s.limiter.Take()
		conn, err := l.Accept()
		if err != nil {
			if s.isStopped() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			d := b.Duration()
			logger.Errorz("[server] accept error", zap.Duration("retry", d), zap.Error(err))
			time.Sleep(d)
			continue
		}
		b.Reset()
		s.handle(ctx, conn)
	}
}

func (s *ControlServer) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	begin := time.Now()
	requestID := uuid.New().String()

	line, err := readRequest(conn)
	if err != nil {
		result := "read_error"
		if errors.Is(err, ErrEmptyRequest) {
			result = "empty"
		}
		stats.ControlRequestsTotal.WithLabelValues(result).Inc()
		logger.Warnz("[server] read request error", zap.String("request", requestID), zap.Error(err))
		return
	}

	logger.Debugf("[server] request %s raw line %q", requestID, line)

	var resp []string
	batch, err := command.Parse(line)
	switch {
	case err != nil:
		resp = []string{err.Error()}
	case len(batch) > 0:
		resp, err = s.bus.Submit(ctx, batch)
		if err != nil {
			stats.ControlRequestsTotal.WithLabelValues("aborted").Inc()
			logger.Warnz("[server] request aborted", zap.String("request", requestID), zap.Error(err))
			return
		}
	}

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(FormatResponse(resp)); err == nil {
		err = w.Flush()
	}
	if err != nil {
		stats.ControlRequestsTotal.WithLabelValues("write_error").Inc()
		logger.Warnz("[server] write response error", zap.String("request", requestID), zap.Error(err))
		return
	}

	stats.ControlRequestsTotal.WithLabelValues("ok").Inc()
	logger.Infoz("[server] request",
		zap.String("request", requestID),
		zap.String("line", strings.TrimSpace(line)),
		zap.Int("commands", len(batch)),
		zap.Duration("cost", time.Since(begin)))
}

// readRequest reads one line. A peer closing without sending anything yields ErrEmptyRequest.
func readRequest(conn net.Conn) (string, error) {
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", ErrEmptyRequest
		}
		return line, nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read request")
	}
	return line, nil
}

// FormatResponse joins the non-blank lines with ';' and terminates the result with a newline.
func FormatResponse(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, separator) + "\n"
}

func (s *ControlServer) isStopped() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stopped
}

func (s *ControlServer) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.listener != nil {
		s.listener.Close()
		logger.Infoz("[server] stop", zap.String("socket", s.cfg.SocketPath))
	}
}
