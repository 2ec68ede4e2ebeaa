package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyJSONHandler_NestsGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, nil))

	logger.With("round", "r1").WithGroup("tick").Info("round over",
		"score", 12,
		"cause", "obstacle_hit",
		slog.Group("board", "cols", 20, "rows", 20),
		"err", errors.New("boom"),
	)

	out := buf.String()
	if !strings.Contains(out, "\n  ") {
		t.Fatalf("output is not indented: %q", out)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if got["msg"] != "round over" || got["level"] != "INFO" {
		t.Fatalf("msg/level wrong: %v", got)
	}
	tick, ok := got["tick"].(map[string]any)
	if !ok {
		t.Fatalf("missing tick group: %v", got)
	}
	if tick["score"] != float64(12) || tick["cause"] != "obstacle_hit" || tick["round"] != "r1" {
		t.Fatalf("tick group=%v", tick)
	}
	board, ok := tick["board"].(map[string]any)
	if !ok || board["cols"] != float64(20) {
		t.Fatalf("board group=%v", tick["board"])
	}
	if tick["err"] != "boom" {
		t.Fatalf("err=%v want boom", tick["err"])
	}
}

func TestPrettyJSONHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn not written")
	}
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"", FormatText, FormatJSON, FormatPretty} {
		var buf bytes.Buffer
		logger, err := New(&buf, format, slog.LevelInfo)
		if err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
		logger.Info("hello")
		if !strings.Contains(buf.String(), "hello") {
			t.Fatalf("format %q wrote %q", format, buf.String())
		}
	}
	if _, err := New(&bytes.Buffer{}, "xml", slog.LevelInfo); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	if err != nil || lvl != slog.LevelDebug {
		t.Fatalf("ParseLevel(debug)=%v,%v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for bad level")
	}
}
