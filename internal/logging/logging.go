// Package logging holds the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is used by both formatters.
const TimestampFormat = "2006-01-02 15:04:05"

var (
	mu     sync.Mutex
	logger *logrus.Logger
)

// Logger returns the process logger, creating a JSON logger at info level
// on stderr on first use.
func Logger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = newLogger("info", "json", os.Stderr)
	}
	return logger
}

// Configure replaces the process logger. Unknown levels fall back to info;
// format is "json" (default) or "text".
func Configure(level, format string, out io.Writer) *logrus.Logger {
	l := newLogger(level, format, out)
	mu.Lock()
	logger = l
	mu.Unlock()
	return l
}

func newLogger(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: TimestampFormat,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
		})
	}
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)
	return l
}
