package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTraceLogsOutcome(t *testing.T) {
	t.Setenv("STUDIO_LOG_FORMAT", "json")
	t.Setenv("STUDIO_LOG_LEVEL", "info")
	var buf bytes.Buffer
	InitWithWriter(&buf)

	if err := Trace("sess-1", "advance", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := Trace("sess-1", "synthesize", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected the wrapped function's error, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if first["message"] != "advance succeeded" {
		t.Errorf("unexpected message %v", first["message"])
	}
	if first["session_id"] != "sess-1" {
		t.Errorf("unexpected session_id %v", first["session_id"])
	}
	if _, ok := first["duration_ms"]; !ok {
		t.Error("expected duration_ms field")
	}
	if !strings.Contains(lines[1], "synthesize failed") {
		t.Errorf("expected failure line, got %s", lines[1])
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("STUDIO_TEST_VALUE", "")
	if got := EnvOrDefault("STUDIO_TEST_VALUE", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
	t.Setenv("STUDIO_TEST_VALUE", "set")
	if got := EnvOrDefault("STUDIO_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("got %q, want set", got)
	}
}
