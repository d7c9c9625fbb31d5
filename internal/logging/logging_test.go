package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger")
	}
}

func TestStartSpanTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, slog.LevelDebug)

	ctx := WithLogger(context.Background(), base)
	ctx = WithUserID(ctx, "user-1")
	ctx, parent := StartSpan(ctx, "outer")
	ctx, child := StartSpan(ctx, "inner")

	if TraceIDFromContext(ctx) == "" || SpanIDFromContext(ctx) == "" {
		t.Fatal("expected trace and span ids on context")
	}

	FromContext(ctx).Info("hello")
	child.End()
	parent.End()

	var entry map[string]any
	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["user_id"] != "user-1" || entry["span_name"] != "inner" {
		t.Fatalf("unexpected log attributes: %v", entry)
	}
	if entry["parent_span_id"] == nil || entry["trace_id"] == nil {
		t.Fatalf("expected parent span and trace ids: %v", entry)
	}
}

func TestWithRequestIDIgnoresEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if RequestIDFromContext(ctx) != "" {
		t.Fatal("expected no request id")
	}
	if RequestIDFromContext(WithRequestID(ctx, "abc")) != "abc" {
		t.Fatal("expected request id to round trip")
	}
}
