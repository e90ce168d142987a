//go:build linux || darwin

package internal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talostrading/asyncevent/aeopts"
)

func TestWaker(t *testing.T) {
	assert := assert.New(t)

	mux, _, err := NewMultiplexer(aeopts.APIDefault)
	require.NoError(t, err)
	defer mux.Close()

	w, err := NewWaker()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, mux.Register(w.Fd(), MaskRead))

	events, err := mux.Poll(0)
	require.NoError(t, err)
	assert.Empty(events)

	// many wakes collapse into one readiness notification
	for i := 0; i < 10; i++ {
		assert.NoError(w.Wake())
	}
	events, err = mux.Poll(time.Second)
	require.NoError(t, err)
	mask, ok := find(events, w.Fd())
	assert.True(ok)
	assert.NotZero(mask & MaskRead)

	w.Drain()
	events, err = mux.Poll(0)
	require.NoError(t, err)
	assert.Empty(events)
}

func TestWakerFromOtherGoroutine(t *testing.T) {
	assert := assert.New(t)

	mux, _, err := NewMultiplexer(aeopts.APIPoll)
	require.NoError(t, err)
	defer mux.Close()

	w, err := NewWaker()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, mux.Register(w.Fd(), MaskRead))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		_ = w.Wake()
	}()

	events, err := mux.Poll(-1)
	require.NoError(t, err)
	_, ok := find(events, w.Fd())
	assert.True(ok)
	wg.Wait()
}
