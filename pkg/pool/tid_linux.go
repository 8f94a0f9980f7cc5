//go:build linux

package pool

import "golang.org/x/sys/unix"

// gettid returns the OS thread id of the calling thread
func gettid() int { return unix.Gettid() }
