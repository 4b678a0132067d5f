package tracing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer == nil {
		t.Fatal("New() returned nil tracer")
	}

	// Spans from the no-op tracer must be safe to use.
	ctx, span := tracer.Start(context.Background(), "test")
	if ctx == nil || span == nil {
		t.Fatal("Start() returned nil")
	}
	span.End()
}

func TestNew_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	tracer, err := New(context.Background(), Config{
		Enabled:      true,
		ExporterType: ExporterStdout,
		ServiceName:  "syncbridge-test",
		SampleRate:   1.0,
		Output:       &buf,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	_, span := tracer.Start(context.Background(), "test-span")
	span.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "test-span") {
		t.Errorf("exported output missing span name: %s", buf.String())
	}
}

func TestNew_UnsupportedExporter(t *testing.T) {
	_, err := New(context.Background(), Config{
		Enabled:      true,
		ExporterType: ExporterType("bogus"),
	})
	if err == nil {
		t.Fatal("New() with unsupported exporter should fail")
	}
}

func TestExecuteSpan(t *testing.T) {
	var buf bytes.Buffer
	tracer, err := New(context.Background(), Config{
		Enabled:      true,
		ExporterType: ExporterStdout,
		ServiceName:  "syncbridge-test",
		SampleRate:   1.0,
		Output:       &buf,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, span := tracer.StartExecuteSpan(context.Background(), "createTask", "tasks:list")
	if ctx == nil {
		t.Fatal("StartExecuteSpan() returned nil context")
	}
	span.SetOnline(false)
	span.SetFromCache(true)
	span.SetQueued(true, "act-1")
	span.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"executor.execute", "action.type", "executor.queued"} {
		if !strings.Contains(out, want) {
			t.Errorf("exported output missing %q", want)
		}
	}
}

func TestDrainSpan_EndWithError(t *testing.T) {
	var buf bytes.Buffer
	tracer, err := New(context.Background(), Config{
		Enabled:      true,
		ExporterType: ExporterStdout,
		ServiceName:  "syncbridge-test",
		SampleRate:   1.0,
		Output:       &buf,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, span := tracer.StartDrainSpan(context.Background(), "drain-1", 3)
	span.SetOutcome(1, 0, 2)
	span.EndWithError(errors.New("network unavailable"))

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "queue.drain") {
		t.Errorf("exported output missing drain span: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "network unavailable") {
		t.Errorf("exported output missing recorded error: %s", buf.String())
	}
}

func TestReplaySpan(t *testing.T) {
	tracer, err := New(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, span := tracer.StartReplaySpan(context.Background(), "act-1", "createTask")
	span.SetAttempts(2)
	span.End()
}

func TestDefault_ReturnsTracer(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}
