//go:build linux || darwin

package internal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talostrading/asyncevent/aeopts"
	"golang.org/x/sys/unix"
)

var allAPIs = []aeopts.API{
	aeopts.APIDefault,
	aeopts.APIEpoll,
	aeopts.APIKqueue,
	aeopts.APIPoll,
	aeopts.APISelect,
}

func newPipe(t *testing.T) (r, w int) {
	t.Helper()

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	return fds[0], fds[1]
}

func find(events []Event, fd int) (Mask, bool) {
	for _, ev := range events {
		if ev.Fd == fd {
			return ev.Mask, true
		}
	}
	return 0, false
}

func TestNewMultiplexerFallback(t *testing.T) {
	assert := assert.New(t)

	for _, api := range allAPIs {
		mux, got, err := NewMultiplexer(api)
		require.NoError(t, err, api.String())

		assert.GreaterOrEqual(uint8(got), uint8(api))
		assert.Equal(got.String(), mux.Name())
		if got == aeopts.APIPoll || got == aeopts.APISelect {
			assert.Equal(-1, mux.Fd())
		} else {
			assert.GreaterOrEqual(mux.Fd(), 0)
		}

		assert.NoError(mux.Close())
		assert.Error(mux.Close())
	}
}

func TestMultiplexerReadiness(t *testing.T) {
	for _, api := range allAPIs {
		t.Run(api.String(), func(t *testing.T) {
			assert := assert.New(t)

			mux, _, err := NewMultiplexer(api)
			require.NoError(t, err)
			defer mux.Close()

			r, w := newPipe(t)
			defer unix.Close(r)

			require.NoError(t, mux.Register(r, MaskRead))
			require.NoError(t, mux.Register(w, MaskWrite))

			// nothing to read yet, the write end has room
			events, err := mux.Poll(0)
			require.NoError(t, err)
			_, ok := find(events, r)
			assert.False(ok)
			mask, ok := find(events, w)
			assert.True(ok)
			assert.NotZero(mask & MaskWrite)

			// stop watching the write end
			require.NoError(t, mux.Modify(w, 0))
			events, err = mux.Poll(0)
			require.NoError(t, err)
			assert.Empty(events)

			_, err = unix.Write(w, []byte("x"))
			require.NoError(t, err)

			events, err = mux.Poll(time.Second)
			require.NoError(t, err)
			mask, ok = find(events, r)
			assert.True(ok)
			assert.NotZero(mask & MaskRead)
			_, ok = find(events, w)
			assert.False(ok)

			require.NoError(t, mux.Unregister(w))
			require.NoError(t, unix.Close(w))

			// the reader sees the hangup after draining
			var b [8]byte
			_, _ = unix.Read(r, b[:])
			events, err = mux.Poll(time.Second)
			require.NoError(t, err)
			mask, ok = find(events, r)
			assert.True(ok)
			assert.NotZero(mask & (MaskRead | MaskHangup))

			require.NoError(t, mux.Unregister(r))
		})
	}
}

func TestMultiplexerUnknownFd(t *testing.T) {
	for _, api := range allAPIs {
		t.Run(api.String(), func(t *testing.T) {
			assert := assert.New(t)

			mux, _, err := NewMultiplexer(api)
			require.NoError(t, err)
			defer mux.Close()

			r, w := newPipe(t)
			defer unix.Close(r)
			defer unix.Close(w)

			assert.True(errors.Is(mux.Modify(r, MaskRead), ErrUnknownFd))
			assert.True(errors.Is(mux.Unregister(r), ErrUnknownFd))

			require.NoError(t, mux.Register(r, MaskRead))
			assert.Error(mux.Register(r, MaskRead))
			require.NoError(t, mux.Unregister(r))
			assert.True(errors.Is(mux.Unregister(r), ErrUnknownFd))
		})
	}
}

func TestMultiplexerPollTimeout(t *testing.T) {
	for _, api := range allAPIs {
		t.Run(api.String(), func(t *testing.T) {
			assert := assert.New(t)

			mux, _, err := NewMultiplexer(api)
			require.NoError(t, err)
			defer mux.Close()

			r, w := newPipe(t)
			defer unix.Close(r)
			defer unix.Close(w)
			require.NoError(t, mux.Register(r, MaskRead))

			start := time.Now()
			events, err := mux.Poll(50 * time.Millisecond)
			require.NoError(t, err)
			assert.Empty(events)
			assert.True(time.Since(start) >= 40*time.Millisecond)
		})
	}
}

func TestMaskString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("NONE", Mask(0).String())
	assert.Equal("IN", MaskRead.String())
	assert.Equal("IN OUT HUP", (MaskRead | MaskWrite | MaskHangup).String())
	assert.Equal("PRI ERR", (MaskPriority | MaskError).String())
}

func TestTimeoutMs(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(-1, timeoutMs(-time.Second))
	assert.Equal(0, timeoutMs(0))
	assert.Equal(1, timeoutMs(time.Microsecond))
	assert.Equal(1, timeoutMs(time.Millisecond))
	assert.Equal(2, timeoutMs(time.Millisecond+time.Nanosecond))
}
