// Package logging provides structured logging for the WageBook core.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. Format is "json" or "text"; level is
// one of debug/info/warn/error. Unknown values fall back to text/info.
func Init(out io.Writer, level, format string) {
	once.Do(func() {
		global = build(out, level, format)
	})
}

// Get returns the global logger instance, initializing it with defaults if
// Init was never called.
func Get() *logrus.Logger {
	if global == nil {
		Init(os.Stdout, "info", "text")
	}
	return global
}

func build(out io.Writer, level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return l
}

// Convenience functions using the global logger.

func Debug(message string, fields logrus.Fields) {
	Get().WithFields(fields).Debug(message)
}

func Info(message string, fields logrus.Fields) {
	Get().WithFields(fields).Info(message)
}

func Warn(message string, fields logrus.Fields) {
	Get().WithFields(fields).Warn(message)
}

func Error(message string, err error, fields logrus.Fields) {
	entry := Get().WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}
