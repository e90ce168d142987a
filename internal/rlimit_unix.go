//go:build darwin || netbsd || freebsd || openbsd || dragonfly || linux

package internal

import (
	"os"

	"golang.org/x/sys/unix"
)

// RaiseNoFileLimit raises the soft limit on open descriptors to the hard
// limit and returns the resulting soft limit.
func RaiseNoFileLimit() (uint64, error) {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return 0, os.NewSyscallError("getrlimit", err)
	}
	if rlim.Cur == rlim.Max {
		return uint64(rlim.Cur), nil
	}

	rlim.Cur = rlim.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return 0, os.NewSyscallError("setrlimit", err)
	}
	return uint64(rlim.Cur), nil
}

// NoFileLimit returns the soft and hard limits on open descriptors.
func NoFileLimit() (soft, hard uint64, err error) {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return 0, 0, os.NewSyscallError("getrlimit", err)
	}
	return uint64(rlim.Cur), uint64(rlim.Max), nil
}
