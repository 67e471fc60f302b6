package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		wantDebug     bool
		wantPrefix    string
	}{
		{"debug", "json", true, "{"},
		{"info", "text", false, "time="},
		{"bogus", "", false, "time="},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.level, tt.format, &buf)
			logger.Debug("dbg")
			logger.Info("hello", "k", 1)
			out := buf.String()
			if strings.Contains(out, "dbg") != tt.wantDebug {
				t.Errorf("debug output present = %v, want %v: %s", !tt.wantDebug, tt.wantDebug, out)
			}
			if !strings.HasPrefix(out, tt.wantPrefix) && !(tt.wantDebug && strings.HasPrefix(out, "{")) {
				t.Errorf("output %q does not start with %q", out, tt.wantPrefix)
			}
		})
	}
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "text", &buf)
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("logger not carried by context")
	}
	if FromContext(context.Background()) == nil {
		t.Error("missing logger should fall back to a discarding one")
	}
	FromContext(context.Background()).Info("dropped")
	if ParseLevel("warn") != slog.LevelWarn {
		t.Error("ParseLevel(warn)")
	}
}
