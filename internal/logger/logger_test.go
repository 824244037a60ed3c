package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		env, level string
		want       slog.Level
	}{
		{"dev", "", slog.LevelDebug},
		{"prod", "", slog.LevelInfo},
		{"prod", "debug", slog.LevelDebug},
		{"dev", "WARN", slog.LevelWarn},
		{"dev", "error", slog.LevelError},
		{"prod", "nonsense", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := parseLevel(c.env, c.level); got != c.want {
			t.Errorf("parseLevel(%q, %q) = %v, want %v", c.env, c.level, got, c.want)
		}
	}
}

func TestProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "prod", "")
	log.Debug("hidden")
	log.Info("synced", "added", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %s", out)
	}
	if !strings.Contains(out, `"msg":"synced"`) || !strings.Contains(out, `"added":2`) {
		t.Fatalf("expected JSON record, got %s", out)
	}
}
