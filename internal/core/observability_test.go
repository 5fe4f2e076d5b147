package core

import (
	"context"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected generated name")
	}
	if expvar.Get(recorder.Name()) == nil {
		t.Fatalf("recorder not published under %q", recorder.Name())
	}

	recorder.Observe(context.Background(), "import", true, 20*time.Millisecond)
	recorder.Observe(context.Background(), "import", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Second) // ignored

	snap := recorder.Snapshot()
	if snap.DurationsMS["import"] != 25 {
		t.Fatalf("durations = %v", snap.DurationsMS)
	}
	if snap.Results["import"]["success"] != 1 || snap.Results["import"]["error"] != 1 {
		t.Fatalf("results = %v", snap.Results)
	}

	// snapshots must not alias live state
	snap.DurationsMS["import"] = 999
	if recorder.Snapshot().DurationsMS["import"] != 25 {
		t.Fatalf("snapshot aliases recorder state")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	recorder.Observe(context.Background(), "edit_field", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "edit_field", false, 10*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{"register_operations_total", "register_operation_duration_seconds"} {
		if !found[name] {
			t.Fatalf("metric %s not registered, got %v", name, found)
		}
	}

	// double registration against the same registry must fail
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
}

func TestStdLoggerFormatsKeyValues(t *testing.T) {
	// stdLogger writes through the process logger; just exercise the
	// formatting paths for panics and odd argument counts.
	logger := NewStdLogger(true)
	logger.Debug("message", "k", 1)
	logger.Info("message", "k")
	logger.Warn("message")
	logger.Error("message", "err", "boom")
}

func TestNoopPortsAreSafe(t *testing.T) {
	var l noopLogger
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	var m noopMetricsRecorder
	m.Observe(context.Background(), "op", true, time.Second)
}

func TestStdLoggerLevels(t *testing.T) {
	quiet := NewStdLogger(false)
	if s, ok := quiet.(stdLogger); !ok || s.verbose {
		t.Fatalf("quiet logger misconfigured: %#v", quiet)
	}
	if !strings.HasPrefix(NewExpvarMetricsRecorder("").Name(), "register_service_metrics_") {
		t.Fatalf("generated name prefix wrong")
	}
}
