package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Logger is the structured logging port of the service. Arguments are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// stdLogger adapts the process logger to the Logger port. Debug output
// is suppressed unless verbose is set.
type stdLogger struct {
	verbose bool
}

// NewStdLogger returns a Logger backed by the standard process logger.
func NewStdLogger(verbose bool) Logger { return stdLogger{verbose: verbose} }

func (l stdLogger) Debug(msg string, args ...any) {
	if l.verbose {
		l.emit("DEBUG", msg, args)
	}
}
func (l stdLogger) Info(msg string, args ...any)  { l.emit("INFO", msg, args) }
func (l stdLogger) Warn(msg string, args ...any)  { l.emit("WARN", msg, args) }
func (l stdLogger) Error(msg string, args ...any) { l.emit("ERROR", msg, args) }

func (stdLogger) emit(level, msg string, args []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "level=%s msg=%q", level, msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " %v=", args[len(args)-1])
	}
	log.Print(b.String())
}

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}
