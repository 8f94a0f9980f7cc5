/*
Package log wires zerolog for tenantd.

The root Logger starts as a no-op: importing a tenantd package never
produces output until the launcher calls Setup, which installs the
level, the output format (JSON or console), and the timestamping root
all component loggers derive from.

Two constructors cover the call sites in this codebase:

	regLog := log.Component("registry")
	regLog.Info().Str("tenant_id", id).Msg("Tenant created")

	wLog := log.Tenant("worker", tenantID)
	wLog.Error().Interface("panic", r).Msg("Task execution panicked")

Component tags a subsystem; Tenant additionally pins the tenant_id
field so per-tenant subsystems (workers, thread groups) attribute every
line without repeating the field at each call.
*/
package log
