package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h failingHandler) WithGroup(string) slog.Handler           { return h }

func TestTeeHandlerWritesAllSinksDespiteFailure(t *testing.T) {
	var buf bytes.Buffer
	tee := &teeHandler{handlers: []slog.Handler{
		failingHandler{},
		slog.NewJSONHandler(&buf, nil),
	}}

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "login accepted", 0)
	if err := tee.Handle(context.Background(), rec); err == nil {
		t.Fatal("failing sink error must surface")
	}
	if !bytes.Contains(buf.Bytes(), []byte("login accepted")) {
		t.Fatal("healthy sink must still receive the record")
	}
}

func TestTraceContextHandlerSkipsAttrsOutsideSpan(t *testing.T) {
	var buf bytes.Buffer
	h := &traceContextHandler{next: slog.NewJSONHandler(&buf, nil)}
	logger := slog.New(h)

	logger.InfoContext(context.Background(), "audit")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, present := entry["trace_id"]; present {
		t.Fatal("trace_id must not appear without an active span")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q): got %v want %v", in, got, want)
		}
	}
}
