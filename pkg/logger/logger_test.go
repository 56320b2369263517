package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/postplanner/post-planner-bot/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tc := range cases {
		got, err := parseLevel(tc.in)
		if err != nil {
			t.Fatalf("parseLevel(%q): %v", tc.in, err)
		}
		if got.Level() != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := parseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestReplaceAttrs_TimeInUTC(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	a := slog.Time(slog.TimeKey, time.Date(2025, 11, 10, 15, 0, 0, 0, loc))

	out := replaceAttrs(nil, a)
	if got := out.Value.String(); got != "2025-11-10T12:00:00Z" {
		t.Fatalf("unexpected time attr: %s", got)
	}
}

func TestReplaceAttrs_LevelUppercase(t *testing.T) {
	a := slog.Any(slog.LevelKey, slog.LevelWarn)
	if got := replaceAttrs(nil, a).Value.String(); got != "WARN" {
		t.Fatalf("unexpected level attr: %s", got)
	}
}

func TestRecordCarriesServiceName(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: replaceAttrs})
	log := slog.New(h).With(slog.String("service", serviceName))

	log.Info("ping")
	if !strings.Contains(buf.String(), `"service":"post-planner-bot"`) {
		t.Fatalf("record misses service name: %s", buf.String())
	}
}

func TestNew(t *testing.T) {
	log := New(&config.LoggerConfig{Level: "debug", Format: "json"})
	if log == nil {
		t.Fatalf("nil logger")
	}
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug level must be enabled")
	}
}
