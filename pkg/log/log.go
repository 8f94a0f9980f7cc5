package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide root logger. It starts as a no-op so that
// library consumers and tests stay silent; the launcher replaces it via
// Setup, and every package derives its loggers from it with Component
// or Tenant.
var Logger = zerolog.Nop()

// Setup configures the root logger. level accepts zerolog's level
// names ("debug", "info", "warn", "error"); an unparseable level keeps
// the info default. JSON output goes to stderr as-is; otherwise a
// console writer renders for humans.
func Setup(level string, json bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stderr
	if !json {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the subsystem name.
// Long-lived components (the registry, the thread pool, the monitor)
// hold one for their whole life.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Tenant returns a component logger additionally scoped to one tenant,
// so every line a worker or thread group emits is attributable to the
// tenant it ran for.
func Tenant(component, tenantID string) zerolog.Logger {
	return Logger.With().Str("component", component).Str("tenant_id", tenantID).Logger()
}
