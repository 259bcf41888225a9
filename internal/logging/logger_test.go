package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	logger := slog.New(newPrettyHandler(&buf, levelVar))
	logger = NewComponentLogger(logger, "feed")
	logger.Info("assembled", Int("posts", 12), String("source", "EarthPorn"))

	line := buf.String()
	if !strings.Contains(line, "INFO feed: assembled") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "posts=12") || !strings.Contains(line, "source=EarthPorn") {
		t.Fatalf("attributes missing: %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	logger := slog.New(newPrettyHandler(&buf, levelVar))
	logger.Warn("degraded", String("reason", "all sorts failed"))

	if !strings.Contains(buf.String(), `reason="all sorts failed"`) {
		t.Fatalf("value not quoted: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != slog.LevelInfo {
		t.Fatalf("unexpected level: %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("unexpected level: %v", got)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic and must report disabled at every level.
	logger.Error("ignored")
	if logger.Enabled(t.Context(), slog.LevelError) {
		t.Fatal("noop logger should be disabled")
	}
}
