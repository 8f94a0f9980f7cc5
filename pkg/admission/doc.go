/*
Package admission implements the per-request gate in front of the
tenant thread pools: user@tenant name resolution, the CPU quota check,
and request context assembly.

The authenticator splits the presented name at the first '@' and
verifies the tenant against the registry; credential validation beyond
tenant existence is delegated to an optional hook. Admission then
consults CPU accounting - the tenant's observed utilization, scaled to
percent, must be strictly below its quota - and hands back a request
context carrying the shared tenant handle and a fresh, exclusively
owned statistics sink.

Admission is deliberately not serialized against usage updates: a
check may race a concurrent update and briefly admit a request that
would have been denied moments later.
*/
package admission
