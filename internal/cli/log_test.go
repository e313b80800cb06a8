package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		debug   bool
		wantOut bool
	}{
		{"info at info level", log.InfoLevel, false, true},
		{"debug at info level", log.InfoLevel, true, false},
		{"debug at debug level", log.DebugLevel, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			if tt.debug {
				logger.Debug("compile", "instructions", 12)
			} else {
				logger.Info("loaded graph", "nodes", 5)
			}
			if got := buf.Len() > 0; got != tt.wantOut {
				t.Errorf("wrote output = %v, want %v", got, tt.wantOut)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Evaluated 3 input vectors")

	out := buf.String()
	if !strings.Contains(out, "Evaluated 3 input vectors (") {
		t.Errorf("progress output %q lacks message and elapsed time", out)
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("a bare context should yield the default logger")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	got := loggerFromContext(withLogger(context.Background(), custom))
	if got != custom {
		t.Fatal("loggerFromContext should return the attached logger")
	}
	got.Info("attached")
	if buf.Len() == 0 {
		t.Error("attached logger should write to its buffer")
	}
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	h := newLogHooks(newLogger(&buf, log.DebugLevel))
	ctx := context.Background()
	hash := strings.Repeat("ab", 32)

	h.OnLoad(ctx, "graph.json", 7, 0, nil)
	h.OnCompile(ctx, hash, 7, 0)
	h.OnEval(ctx, hash, 2, true, 0, nil)
	h.OnRender(ctx, "svg", 0, 0, errors.New("no dot"))
	h.OnCacheMiss(ctx, "eval")

	out := buf.String()
	for _, want := range []string{"load", "graph.json", "compile", shortHash(hash), "eval", "render failed", "cache miss"} {
		if !strings.Contains(out, want) {
			t.Errorf("hook output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, hash) {
		t.Error("hashes should be shortened in log output")
	}
}

func TestLogHooksQuietAtInfo(t *testing.T) {
	var buf bytes.Buffer
	h := newLogHooks(newLogger(&buf, log.InfoLevel))
	h.OnCacheHit(context.Background(), "render")
	if buf.Len() != 0 {
		t.Errorf("hooks should log at debug level only, got %q", buf.String())
	}
}
