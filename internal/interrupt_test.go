//go:build linux || darwin

package internal

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPollInterrupted(t *testing.T) {
	defer func(fn func([]unix.PollFd, int) (int, error)) { pollFds = fn }(pollFds)

	assert := assert.New(t)

	mux, err := NewPoll()
	require.NoError(t, err)
	defer mux.Close()

	r, w := newPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	require.NoError(t, mux.Register(r, MaskRead))

	pollFds = func([]unix.PollFd, int) (int, error) { return -1, unix.EINTR }
	events, err := mux.Poll(-1)
	assert.NoError(err)
	assert.Empty(events)

	pollFds = func([]unix.PollFd, int) (int, error) { return -1, unix.EBADF }
	_, err = mux.Poll(-1)
	var serr *os.SyscallError
	assert.True(errors.As(err, &serr))
	assert.True(errors.Is(err, unix.EBADF))
}

func TestSelectInterrupted(t *testing.T) {
	defer func(fn func(int, *unix.FdSet, *unix.FdSet, *unix.FdSet, *unix.Timeval) (int, error)) {
		selectFds = fn
	}(selectFds)

	assert := assert.New(t)

	mux, err := NewSelect()
	require.NoError(t, err)
	defer mux.Close()

	r, w := newPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	require.NoError(t, mux.Register(r, MaskRead))

	selectFds = func(int, *unix.FdSet, *unix.FdSet, *unix.FdSet, *unix.Timeval) (int, error) {
		return -1, unix.EINTR
	}
	events, err := mux.Poll(time.Second)
	assert.NoError(err)
	assert.Empty(events)

	selectFds = func(int, *unix.FdSet, *unix.FdSet, *unix.FdSet, *unix.Timeval) (int, error) {
		return -1, unix.EINVAL
	}
	_, err = mux.Poll(time.Second)
	assert.True(errors.Is(err, unix.EINVAL))
}
