//go:build linux

package sim

import "golang.org/x/sys/unix"

func threadID() int {
	return unix.Gettid()
}

const threadCheckSupported = true
