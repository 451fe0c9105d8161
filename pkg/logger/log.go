/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package logger

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
	"path/filepath"
	"sync"
)

type (
	alwaysLevel     struct{}
	loggerComposite struct {
		debug   *zap.Logger
		debugS  *zap.SugaredLogger
		info    *zap.Logger
		infoS   *zap.SugaredLogger
		warn    *zap.Logger
		warnS   *zap.SugaredLogger
		error   *zap.Logger
		errorS  *zap.SugaredLogger
		sample  *zap.Logger
		closers []*os.File
	}
)

var (
	zapLogger    *loggerComposite
	zapLoggerMu  sync.RWMutex
	debugEnabled = atomic.NewBool(false)
)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:          "time",
	LevelKey:         "level",
	NameKey:          "logger",
	CallerKey:        "caller",
	MessageKey:       "msg",
	StacktraceKey:    "stacktrace",
	ConsoleSeparator: " ",
	LineEnding:       zapcore.DefaultLineEnding,
	EncodeLevel:      zapcore.LowercaseLevelEncoder,
	EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
	EncodeDuration:   zapcore.SecondsDurationEncoder,
}

// init initializes default loggers (to console)
func init() {
	newConsoleLogger := func() *zap.Logger {
		return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), alwaysLevel{}))
	}
	swap(&loggerComposite{
		debug:  newConsoleLogger(),
		info:   newConsoleLogger(),
		warn:   newConsoleLogger(),
		error:  newConsoleLogger(),
		sample: newConsoleLogger(),
	})
}

func (a alwaysLevel) Enabled(level zapcore.Level) bool {
	return true
}

// SetupZapLogger writes every logger to its own file under logDir.
// In dev mode the output is also teed to stdout.
func SetupZapLogger(logDir string, dev bool) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	var files []*os.File
	newFileLogger := func(name string) (*zap.Logger, error) {
		f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
		fileCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(f), alwaysLevel{})
		if !dev {
			return zap.New(fileCore), nil
		}
		return zap.New(zapcore.NewTee(
			zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), alwaysLevel{}),
			fileCore,
		)), nil
	}

	c := &loggerComposite{}
	for _, x := range []struct {
		name string
		l    **zap.Logger
	}{
		{"debug.log", &c.debug},
		{"info.log", &c.info},
		{"warn.log", &c.warn},
		{"error.log", &c.error},
		{"sample.log", &c.sample},
	} {
		l, err := newFileLogger(x.name)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return err
		}
		*x.l = l
	}
	c.closers = files
	swap(c)
	return nil
}

func swap(c *loggerComposite) {
	c.debugS = c.debug.Sugar()
	c.infoS = c.info.Sugar()
	c.warnS = c.warn.Sugar()
	c.errorS = c.error.Sugar()

	zapLoggerMu.Lock()
	old := zapLogger
	zapLogger = c
	zapLoggerMu.Unlock()

	if old != nil {
		for _, f := range old.closers {
			f.Close()
		}
	}
}

func get() *loggerComposite {
	zapLoggerMu.RLock()
	defer zapLoggerMu.RUnlock()
	return zapLogger
}

// Sync flushes all loggers.
func Sync() {
	c := get()
	for _, l := range []*zap.Logger{c.debug, c.info, c.warn, c.error, c.sample} {
		l.Sync()
	}
}

func Debugz(msg string, fields ...zap.Field) {
	if debugEnabled.Load() {
		get().debug.Info(msg, fields...)
	}
}
func Infoz(msg string, fields ...zap.Field) {
	get().info.Info(msg, fields...)
}
func Warnz(msg string, fields ...zap.Field) {
	get().warn.Info(msg, fields...)
}
func Errorz(msg string, fields ...zap.Field) {
	get().error.Info(msg, fields...)
}

// Samplez is the output of collected samples.
func Samplez(msg string, fields ...zap.Field) {
	get().sample.Info(msg, fields...)
}

func Debugf(msg string, args ...interface{}) {
	if debugEnabled.Load() {
		get().debugS.Infof(msg, args...)
	}
}
func Infof(msg string, args ...interface{}) {
	get().infoS.Infof(msg, args...)
}
func Warnf(msg string, args ...interface{}) {
	get().warnS.Infof(msg, args...)
}
func Errorf(msg string, args ...interface{}) {
	get().errorS.Infof(msg, args...)
}

func IsDebugEnabled() bool {
	return debugEnabled.Load()
}

// SetDebugEnabled toggles Debugz and Debugf. It is safe to call while other goroutines log.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}
