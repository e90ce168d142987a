package aeerrors

import "errors"

var (
	// ErrExitNow aborts Reactor.Run when returned (or wrapped) by any callback.
	ErrExitNow = errors.New("exit now")

	ErrAlreadyRegistered = errors.New("dispatcher already registered")
	ErrNotRegistered     = errors.New("dispatcher not registered")
	ErrInvalidDispatcher = errors.New("invalid dispatcher")

	ErrWouldBlock   = errors.New("operation would block")
	ErrTimeout      = errors.New("operation timed out")
	ErrClosed       = errors.New("file descriptor closed")
	ErrNotConnected = errors.New("socket not connected")
	ErrUnknownFd    = errors.New("file descriptor not monitored")
	ErrUnsupported  = errors.New("operation not supported")
)

// IsExitNow reports whether err is, or wraps, ErrExitNow.
func IsExitNow(err error) bool {
	return errors.Is(err, ErrExitNow)
}
