package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes to stdout and a size-rotated file under the log directory.
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

// New creates a Logger writing JSON lines to dir/notification-service.log and stdout.
func New(dir, level string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create logs folder failed: %w", err)
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "notification-service.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 7,
		MaxAge:     28, // days
		Compress:   true,
	}

	l := logrus.New()
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	// Output to both file and console
	l.SetOutput(io.MultiWriter(file, os.Stdout))

	return &Logger{Logger: l, file: file}, nil
}

// NewWithWriter builds a Logger on an arbitrary writer without file rotation.
func NewWithWriter(w io.Writer, level logrus.Level) *Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(w)
	return &Logger{Logger: l}
}

// Discard returns a Logger that drops everything; used by tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, logrus.PanicLevel)
}

// WithCorrelation tags entries with the end-to-end tracing id carried in broker headers.
func (l *Logger) WithCorrelation(correlationID string) *logrus.Entry {
	return l.WithField("correlation_id", correlationID)
}

func (l *Logger) Close() {
	if l.file == nil {
		return
	}
	if err := l.file.Close(); err != nil {
		return
	}
}
