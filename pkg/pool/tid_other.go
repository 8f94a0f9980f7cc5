//go:build !linux

package pool

// gettid is only meaningful on Linux, where worker threads are bound to
// cgroups. Elsewhere the cgroup controller is a no-op and the id is
// never consumed.
func gettid() int { return 0 }
