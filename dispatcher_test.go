package asyncevent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// plainDispatcher only provides the required methods.
type plainDispatcher struct {
	*BaseDispatcher
	fd     int
	closed int
}

func (d *plainDispatcher) Fd() int { return d.fd }

func (d *plainDispatcher) Close() error {
	d.closed++
	return nil
}

func TestBaseDispatcherDefaults(t *testing.T) {
	assert := assert.New(t)

	core, logs := observer.New(zapcore.DebugLevel)
	d := &plainDispatcher{fd: 7}
	d.BaseDispatcher = NewBaseDispatcher(d, WithLogger(NewZapLogger(zap.New(core))))

	assert.True(d.MonitorReadable())
	assert.True(d.MonitorWritable())
	assert.True(d.MonitorTimeout().IsZero())

	assert.Nil(d.HandleReadEvent(nil))
	assert.Nil(d.HandleWriteEvent(nil))
	assert.Nil(d.HandleTimeoutEvent(nil))
	assert.Nil(d.HandleExptEvent(nil))
	assert.Equal(4, logs.Len())

	d.HandleError(nil, errors.New("boom"))
	assert.Equal(1, d.closed)

	assert.Equal(Handler(d), d.Self())
	assert.Equal("*asyncevent.plainDispatcher{fd:7}", d.String())
}

type overridingDispatcher struct {
	plainDispatcher
	reads int
}

func (d *overridingDispatcher) Readable() bool     { return false }
func (d *overridingDispatcher) Timeout() time.Time { return time.Unix(42, 0) }

func (d *overridingDispatcher) HandleRead(_ *Reactor) error {
	d.reads++
	return nil
}

func TestBaseDispatcherCallsOverrides(t *testing.T) {
	assert := assert.New(t)

	d := &overridingDispatcher{}
	d.fd = 8
	d.BaseDispatcher = NewBaseDispatcher(d)

	assert.False(d.MonitorReadable())
	assert.True(d.MonitorWritable())
	assert.Equal(time.Unix(42, 0), d.MonitorTimeout())

	assert.Nil(d.HandleReadEvent(nil))
	assert.Equal(1, d.reads)
}

func TestBaseDispatcherHandleCloseUnregisters(t *testing.T) {
	assert := assert.New(t)

	r, mux, _ := newFakeReactor()

	d := &plainDispatcher{fd: 9}
	d.BaseDispatcher = NewBaseDispatcher(d)
	_, err := r.Register(d)
	require.Nil(t, err)

	d.HandleClose(r)
	assert.False(r.Registered(9))
	assert.Equal(1, d.closed)
	assertConsistent(t, r, mux)

	// not registered anymore: only closes
	d.HandleClose(r)
	assert.Equal(2, d.closed)
}
