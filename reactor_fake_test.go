package asyncevent

import (
	"os"
	"time"

	"github.com/talostrading/asyncevent/aeopts"
	"github.com/talostrading/asyncevent/internal"
	"golang.org/x/sys/unix"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type modifyCall struct {
	fd   int
	mask internal.Mask
}

// fakeMux hands out the queued batches of events. With nothing queued it
// behaves like a timed out wait, advancing the clock by the timeout.
type fakeMux struct {
	masks    map[int]internal.Mask
	modified []modifyCall
	polls    []time.Duration
	batches  [][]internal.Event
	clock    *fakeClock
}

var _ internal.Multiplexer = &fakeMux{}

func newFakeMux(clock *fakeClock) *fakeMux {
	return &fakeMux{
		masks: make(map[int]internal.Mask),
		clock: clock,
	}
}

func (m *fakeMux) Register(fd int, mask internal.Mask) error {
	if _, ok := m.masks[fd]; ok {
		return os.NewSyscallError("fake_register", unix.EEXIST)
	}
	m.masks[fd] = mask
	return nil
}

func (m *fakeMux) Unregister(fd int) error {
	if _, ok := m.masks[fd]; !ok {
		return internal.ErrUnknownFd
	}
	delete(m.masks, fd)
	return nil
}

func (m *fakeMux) Modify(fd int, mask internal.Mask) error {
	if _, ok := m.masks[fd]; !ok {
		return internal.ErrUnknownFd
	}
	m.masks[fd] = mask
	m.modified = append(m.modified, modifyCall{fd, mask})
	return nil
}

func (m *fakeMux) Poll(timeout time.Duration) ([]internal.Event, error) {
	m.polls = append(m.polls, timeout)
	if len(m.batches) > 0 {
		batch := m.batches[0]
		m.batches = m.batches[1:]
		return batch, nil
	}
	if timeout > 0 && m.clock != nil {
		m.clock.Advance(timeout)
	}
	return nil, nil
}

func (m *fakeMux) Fire(events ...internal.Event) {
	m.batches = append(m.batches, events)
}

func (m *fakeMux) Fd() int      { return -1 }
func (m *fakeMux) Name() string { return "fake" }
func (m *fakeMux) Close() error { return nil }

type fakeWaker struct {
	fd      int
	wakes   int
	drained int
}

func (w *fakeWaker) Fd() int      { return w.fd }
func (w *fakeWaker) Wake() error  { w.wakes++; return nil }
func (w *fakeWaker) Drain()       { w.drained++ }
func (w *fakeWaker) Close() error { return nil }

func newFakeReactor(opts ...aeopts.Option) (*Reactor, *fakeMux, *fakeClock) {
	clock := newFakeClock()
	mux := newFakeMux(clock)
	opts = append([]aeopts.Option{WithClock(clock)}, opts...)
	return newReactor(mux, nil, aeopts.APIDefault, opts...), mux, clock
}

// testDispatcher records the handlers invoked on it. It does not own a real
// descriptor.
type testDispatcher struct {
	*BaseDispatcher

	fd       int
	readable bool
	writable bool
	timeout  time.Time

	calls  []string
	errs   []error
	closed int

	onRead    func(r *Reactor) error
	onWrite   func(r *Reactor) error
	onTimeout func(r *Reactor) error
}

func newTestDispatcher(fd int) *testDispatcher {
	d := &testDispatcher{fd: fd, readable: true}
	d.BaseDispatcher = NewBaseDispatcher(d)
	return d
}

func (d *testDispatcher) Fd() int { return d.fd }

func (d *testDispatcher) Close() error {
	d.closed++
	return nil
}

func (d *testDispatcher) Readable() bool     { return d.readable }
func (d *testDispatcher) Writable() bool     { return d.writable }
func (d *testDispatcher) Timeout() time.Time { return d.timeout }

func (d *testDispatcher) HandleRead(r *Reactor) error {
	d.calls = append(d.calls, "read")
	if d.onRead != nil {
		return d.onRead(r)
	}
	return nil
}

func (d *testDispatcher) HandleWrite(r *Reactor) error {
	d.calls = append(d.calls, "write")
	if d.onWrite != nil {
		return d.onWrite(r)
	}
	return nil
}

func (d *testDispatcher) HandleTimeout(r *Reactor) error {
	d.calls = append(d.calls, "timeout")
	if d.onTimeout != nil {
		return d.onTimeout(r)
	}
	return nil
}

func (d *testDispatcher) HandleExpt(_ *Reactor) error {
	d.calls = append(d.calls, "expt")
	return nil
}

func (d *testDispatcher) HandleError(r *Reactor, err error) {
	d.errs = append(d.errs, err)
	d.BaseDispatcher.HandleError(r, err)
}

func (d *testDispatcher) HandleClose(r *Reactor) {
	d.calls = append(d.calls, "close")
	d.BaseDispatcher.HandleClose(r)
}

// testJob fires once at each of the given instants.
type testJob struct {
	name  string
	at    []time.Time
	fired *[]string
}

func (j *testJob) Schedule() time.Time {
	if len(j.at) == 0 {
		return time.Time{}
	}
	return j.at[0]
}

func (j *testJob) HandleJob(_ *Reactor) error {
	*j.fired = append(*j.fired, j.name)
	j.at = j.at[1:]
	return nil
}
