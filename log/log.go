// Package log provides structured logging for the data-availability node. It
// wraps rs/zerolog with per-subsystem child loggers so that kate, blob, p2p,
// rpc, and node each write events tagged with their own "component" field.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// level is the process-wide log level, applied to every logger returned by
// New from this point on.
var level = zerolog.InfoLevel

// console selects human-readable ConsoleWriter output. Production
// deployments want plain JSON on stdout instead; SetProd flips this off.
var console = true

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
}

// SetLevel sets the minimum level for loggers created by New from this point
// on. Accepts "debug", "info", "warn", "error" (case-insensitive); unknown
// values fall back to info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
}

// SetProd switches New to JSON-on-stdout output, appropriate for log
// aggregation in production. The default is a colored console writer, which
// suits local development.
func SetProd(prod bool) {
	console = !prod
}

// New returns a zerolog.Logger scoped to component, carrying a "component"
// field on every event it writes. Call it once per subsystem at startup
// (kate, blob, p2p, rpc, node) and thread the returned logger down instead
// of reaching for a package-level global.
func New(component string) zerolog.Logger {
	w := os.Stdout
	var out io.Writer = w
	if console {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("component", component).Logger()
}
