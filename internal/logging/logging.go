// Package logging configures the process-wide slog logger. Reports are
// written to stdout, so diagnostics always go to stderr (or the writer the
// caller provides): piping `sqlsleuth query --format json` into a consumer
// must never see a log line mixed into the report.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default logger. The quiet default is LevelWarn —
// degraded searches and failed resolutions surface, per-stage tracing does
// not; --verbose lowers it to LevelDebug for the staged-search and
// scope-resolution traces. A nil writer means stderr.
func Init(verbose bool, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})))
}
