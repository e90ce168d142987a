package internal

import (
	"strings"
	"time"
)

// Mask is a backend independent set of readiness conditions. Every backend
// translates it to and from its native bits.
type Mask uint8

const (
	MaskRead Mask = 1 << iota
	MaskWrite
	MaskPriority
	MaskHangup
	MaskError
)

func (m Mask) String() string {
	if m == 0 {
		return "NONE"
	}

	var names []string
	if m&MaskRead != 0 {
		names = append(names, "IN")
	}
	if m&MaskPriority != 0 {
		names = append(names, "PRI")
	}
	if m&MaskWrite != 0 {
		names = append(names, "OUT")
	}
	if m&MaskHangup != 0 {
		names = append(names, "HUP")
	}
	if m&MaskError != 0 {
		names = append(names, "ERR")
	}
	return strings.Join(names, " ")
}

// Event is a descriptor reported ready by Multiplexer.Poll.
type Event struct {
	Fd   int
	Mask Mask
}

// Multiplexer tracks which descriptors are interesting for which readiness
// conditions and blocks until one of them is ready.
type Multiplexer interface {
	// Register starts monitoring fd. Registering a descriptor twice is an
	// error for the kernel backed implementations.
	Register(fd int, mask Mask) error

	// Unregister stops monitoring fd. It fails with ErrUnknownFd if fd is
	// not monitored.
	Unregister(fd int) error

	// Modify replaces the conditions monitored on fd. It fails with
	// ErrUnknownFd if fd is not monitored.
	Modify(fd int, mask Mask) error

	// Poll blocks until at least one descriptor is ready or the timeout
	// expires:
	//  - timeout < 0 blocks indefinitely
	//  - timeout == 0 returns immediately
	//  - timeout > 0 blocks at most that long
	//
	// A call interrupted by a signal returns no events and a nil error. The
	// returned slice is only valid until the next call to Poll.
	Poll(timeout time.Duration) ([]Event, error)

	// Fd is the descriptor of the kernel object backing the multiplexer, or
	// -1 if there is none.
	Fd() int

	Name() string

	Close() error
}

// timeoutMs converts a poll timeout to milliseconds, rounding up so a wake up
// never happens before a deadline.
func timeoutMs(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}
