//go:build !linux

package sim

// Without a portable thread id every call looks like it comes from the
// creating thread.
func threadID() int {
	return 0
}

const threadCheckSupported = false
