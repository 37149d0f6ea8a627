package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_StampsServiceAndLevel(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	l := Init(Options{Level: "warn", Output: &buf, Service: "gateway"})

	l.Info().Msg("dropped")
	l.Warn().Msg("kept")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "gateway" {
		t.Fatalf("expected service field, got %v", line["service"])
	}
	if line["message"] != "kept" {
		t.Fatalf("unexpected message: %v", line["message"])
	}
}

func TestInit_OnlyFirstCallWins(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Output: &first, Service: "a"})
	Init(Options{Output: &second, Service: "b"})

	log := Get()
	log.Info().Msg("hello")
	if first.Len() == 0 || second.Len() != 0 {
		t.Fatalf("expected second Init to be ignored")
	}
}

func TestGet_BeforeInitIsNop(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	l := Get()
	if l.GetLevel() != zerolog.Disabled {
		t.Fatalf("expected disabled logger before Init, got %v", l.GetLevel())
	}
}

func TestWithTrace(t *testing.T) {
	var buf bytes.Buffer
	l := WithTrace(zerolog.New(&buf), "abc123")
	l.Info().Msg("x")

	var line map[string]any
	_ = json.Unmarshal(buf.Bytes(), &line)
	if line[TraceIDField] != "abc123" {
		t.Fatalf("expected trace id, got %v", line[TraceIDField])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
