package internal

import (
	"errors"
	"syscall"

	"github.com/talostrading/asyncevent/aeerrors"
)

// ErrUnknownFd is returned by Unregister and Modify for descriptors that were
// never registered.
var ErrUnknownFd = aeerrors.ErrUnknownFd

// IsTransient reports whether err is a condition which must be retried later
// rather than surfaced: would-block, in-progress or an interrupted call.
func IsTransient(err error) bool {
	switch {
	case errors.Is(err, syscall.EAGAIN),
		errors.Is(err, syscall.EWOULDBLOCK),
		errors.Is(err, syscall.EINPROGRESS),
		errors.Is(err, syscall.EALREADY),
		errors.Is(err, syscall.EINTR):
		return true
	default:
		return false
	}
}
