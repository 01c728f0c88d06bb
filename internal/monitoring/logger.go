// Package monitoring holds the process-wide loggers. Library packages log
// diagnostics through Logf; structured per-frame detail goes through
// WithFields. Both are backed by a logrus logger configured once at startup.
package monitoring

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.RWMutex
	std = newDefault()
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Logf is the package-level diagnostic logger. It defaults to logging at info
// level through logrus but may be replaced by SetLogger. Tests or production
// code can redirect or mute it.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	Logger().Infof(format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// LogConfig describes where and how to log.
type LogConfig struct {
	// Level is one of panic|fatal|error|warn|info|debug|trace.
	Level string
	// Format is "text" or "json".
	Format string
	// Path of a log file; empty logs to stderr.
	Path string
}

// Configure replaces the backing logrus logger. The returned closer releases
// the log file, if one was opened.
func Configure(c LogConfig) (io.Closer, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	level := logrus.InfoLevel
	if c.Level != "" {
		parsed, err := logrus.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
		level = parsed
	}
	l.SetLevel(level)

	switch strings.ToLower(c.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format %q: expected text or json", c.Format)
	}

	var closer io.Closer = nopCloser{}
	if c.Path != "" {
		f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.SetOutput(f)
		closer = f
	}

	SetBackend(l)
	return closer, nil
}

// SetBackend installs l as the logger behind Logf and WithFields.
func SetBackend(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	std = l
}

// Logger returns the current backing logger.
func Logger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// WithFields returns a structured log entry.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger().WithFields(fields)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
