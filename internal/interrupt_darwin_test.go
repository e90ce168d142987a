//go:build darwin

package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestKqueueInterrupted(t *testing.T) {
	defer func(fn func(int, []unix.Kevent_t, []unix.Kevent_t, *unix.Timespec) (int, error)) {
		kevent = fn
	}(kevent)

	assert := assert.New(t)

	mux, err := NewKqueue()
	require.NoError(t, err)
	defer mux.Close()

	r, w := newPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	require.NoError(t, mux.Register(r, MaskRead))

	kevent = func(int, []unix.Kevent_t, []unix.Kevent_t, *unix.Timespec) (int, error) {
		return -1, unix.EINTR
	}
	events, err := mux.Poll(-1)
	assert.NoError(err)
	assert.Empty(events)

	kevent = func(int, []unix.Kevent_t, []unix.Kevent_t, *unix.Timespec) (int, error) {
		return -1, unix.EBADF
	}
	_, err = mux.Poll(-1)
	assert.True(errors.Is(err, unix.EBADF))
}
