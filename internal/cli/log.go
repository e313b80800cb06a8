// Package cli implements the adjoint command-line interface.
//
// This package provides commands for inspecting, evaluating and rendering
// expression graphs stored in the interchange format, generating random
// fixtures, checking gradients against finite differences and serving
// evaluations over HTTP. The CLI is built using cobra and logs through
// charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - inspect: Summarize a graph and print its compiled program
//   - eval: Evaluate the primary output, its gradient and the secondary outputs
//   - render: Draw the graph as DOT, SVG, PDF or PNG
//   - fuzz: Write random graphs with their expected outputs as fixtures
//   - check: Compare analytic gradients with finite differences
//   - serve: Serve evaluations of one graph over HTTP
//   - cache: Manage the result cache
//
// # Configuration
//
// Defaults come from $XDG_CONFIG_HOME/adjoint/config.toml (see [Config]);
// flags override them.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the CLI logger: timestamps as "15:04:05.00", messages
// below level dropped.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long a multi-step operation (a fuzz run, a batch
// evaluation) took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Wrote 10 fixtures (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger attached by the root command, or
// log.Default() when a command runs without one (as in tests).
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
