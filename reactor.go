package asyncevent

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/talostrading/asyncevent/aeerrors"
	"github.com/talostrading/asyncevent/aeopts"
	"github.com/talostrading/asyncevent/internal"
	"github.com/talostrading/asyncevent/util"
)

// Reactor is a single threaded event loop. It monitors the descriptors of the
// registered dispatchers, merges their readiness with per descriptor timeouts
// and scheduled jobs, and invokes the handlers.
//
// Except for Stop and Stopped, a Reactor must only be used from the goroutine
// calling Run, which includes the handlers it invokes.
type Reactor struct {
	log    Logger
	clock  Clock
	strict bool
	api    aeopts.API

	mux   internal.Multiplexer
	waker internal.Waker

	// dispatchers and monitored always have the same keys. monitored mirrors
	// what mux currently watches for each descriptor.
	dispatchers map[int]Dispatcher
	monitored   map[int]internal.Mask

	// fdTimers holds the single pending entry of a descriptor in fdTimeouts.
	fdTimeouts *internal.DeadlineQueue[int]
	fdTimers   map[int]*internal.Deadline[int]

	jobs *internal.DeadlineQueue[ScheduledJob]

	stats *util.TtyHist

	stopped uint32
	closed  bool
}

// NewReactor creates a reactor. The recognised options are EventAPI,
// StrictRegistration (default true), Stats, WithLogger and WithClock.
func NewReactor(opts ...aeopts.Option) (*Reactor, error) {
	api := aeopts.APIDefault
	if opt, ok := aeopts.Find(aeopts.TypeAPI, opts); ok {
		api = opt.Value().(aeopts.API)
	}

	mux, api, err := internal.NewMultiplexer(api)
	if err != nil {
		return nil, err
	}

	waker, err := internal.NewWaker()
	if err != nil {
		_ = mux.Close()
		return nil, err
	}
	if err := mux.Register(waker.Fd(), internal.MaskRead); err != nil {
		_ = waker.Close()
		_ = mux.Close()
		return nil, err
	}

	r := newReactor(mux, waker, api, opts...)
	r.log.Debugf("reactor initialized %s", r)
	return r, nil
}

// MustReactor is NewReactor which panics on error.
func MustReactor(opts ...aeopts.Option) *Reactor {
	r, err := NewReactor(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func newReactor(
	mux internal.Multiplexer,
	waker internal.Waker,
	api aeopts.API,
	opts ...aeopts.Option,
) *Reactor {
	r := &Reactor{
		log:         loggerFrom(opts),
		clock:       clockFrom(opts),
		strict:      true,
		api:         api,
		mux:         mux,
		waker:       waker,
		dispatchers: make(map[int]Dispatcher),
		monitored:   make(map[int]internal.Mask),
		fdTimeouts:  internal.NewDeadlineQueue[int](),
		fdTimers:    make(map[int]*internal.Deadline[int]),
		jobs:        internal.NewDeadlineQueue[ScheduledJob](),
	}

	if opt, ok := aeopts.Find(aeopts.TypeStrictRegistration, opts); ok {
		r.strict = opt.Value().(bool)
	}

	if opt, ok := aeopts.Find(aeopts.TypeStats, opts); ok {
		cfg := opt.Value().(aeopts.StatsConfig)
		r.stats = util.NewTtyHist(util.TtyHistOpts{
			Name:      "reactor_callbacks",
			Scale:     "us",
			N:         cfg.Samples,
			MinPct:    0.1,
			Min:       1,
			Max:       10_000_000,
			Precision: 2,
			Writer:    cfg.Writer,
		})
	}

	return r
}

func (r *Reactor) API() aeopts.API {
	return r.api
}

func (r *Reactor) Logger() Logger {
	return r.log
}

func (r *Reactor) Clock() Clock {
	return r.clock
}

// Now reads the clock of the reactor.
func (r *Reactor) Now() time.Time {
	return r.clock.Now()
}

func (r *Reactor) NumDispatchers() int {
	return len(r.dispatchers)
}

func (r *Reactor) NumJobs() int {
	return r.jobs.Len()
}

// Registered reports whether a dispatcher is registered for fd.
func (r *Reactor) Registered(fd int) bool {
	_, ok := r.dispatchers[fd]
	return ok
}

// Stop makes Run return before its next iteration. It is safe to call from
// any goroutine and interrupts a blocking wait of the multiplexer.
func (r *Reactor) Stop() {
	if atomic.CompareAndSwapUint32(&r.stopped, 0, 1) && r.waker != nil {
		if err := r.waker.Wake(); err != nil {
			r.log.Warningf("could not wake the reactor: %v", err)
		}
	}
}

func (r *Reactor) Stopped() bool {
	return atomic.LoadUint32(&r.stopped) == 1
}

func (r *Reactor) usageError(err error, format string, args ...interface{}) (bool, error) {
	msg := fmt.Sprintf(format, args...)
	if r.strict {
		return false, fmt.Errorf("%w: %s", err, msg)
	}
	r.log.Noticef("%s: %v", msg, err)
	return false, nil
}

func (r *Reactor) maskOf(d Dispatcher) (mask internal.Mask) {
	if d.MonitorReadable() {
		mask |= internal.MaskRead | internal.MaskPriority
	}
	if d.MonitorWritable() {
		mask |= internal.MaskWrite
	}
	return mask
}

// Register starts monitoring d. The conditions and the timeout monitored are
// queried from d right away.
//
// A nil dispatcher or a descriptor which is already registered is a usage
// error: in strict mode it is returned, otherwise Register only returns
// false. Multiplexer failures are always returned.
func (r *Reactor) Register(d Dispatcher) (bool, error) {
	if d == nil {
		return r.usageError(aeerrors.ErrInvalidDispatcher, "cannot register a nil dispatcher")
	}

	fd := d.Fd()
	if fd < 0 {
		return r.usageError(aeerrors.ErrInvalidDispatcher, "cannot register fd %d", fd)
	}
	if _, ok := r.dispatchers[fd]; ok || (r.waker != nil && fd == r.waker.Fd()) {
		return r.usageError(aeerrors.ErrAlreadyRegistered, "fd %d was already registered", fd)
	}

	mask := r.maskOf(d)
	if err := r.mux.Register(fd, mask); err != nil {
		return false, err
	}
	r.log.Debugf("monitored fd %d, flags (%s)", fd, mask)

	r.dispatchers[fd] = d
	r.monitored[fd] = mask
	r.pushTimeout(fd, d)

	return true, nil
}

// Unregister stops monitoring d. Unregistering a nil or unknown dispatcher is
// a usage error handled as in Register.
//
// The dispatcher is forgotten even if the multiplexer fails to release the
// descriptor, in which case true is returned along with the error.
func (r *Reactor) Unregister(d Dispatcher) (bool, error) {
	if d == nil {
		return r.usageError(aeerrors.ErrInvalidDispatcher, "cannot unregister a nil dispatcher")
	}

	fd := d.Fd()
	if _, ok := r.dispatchers[fd]; !ok {
		return r.usageError(aeerrors.ErrNotRegistered, "fd %d is not registered", fd)
	}

	delete(r.dispatchers, fd)
	delete(r.monitored, fd)
	r.removeTimeout(fd)

	if err := r.mux.Unregister(fd); err != nil {
		if errors.Is(err, internal.ErrUnknownFd) {
			// the kernel drops closed descriptors on its own
			r.log.Debugf("fd %d, was not monitored anymore", fd)
			return true, nil
		}
		return true, err
	}
	r.log.Debugf("unmonitored fd %d", fd)
	return true, nil
}

// AddJob schedules job at the instant returned by its Schedule. A zero
// instant means the job is not added and false is returned. Instants in the
// past fire on the next iteration.
func (r *Reactor) AddJob(job ScheduledJob) bool {
	if job == nil {
		return false
	}
	when := job.Schedule()
	if when.IsZero() {
		return false
	}
	r.jobs.Push(when, job)
	return true
}

func (r *Reactor) pushTimeout(fd int, d Dispatcher) {
	when := d.MonitorTimeout()
	if when.IsZero() {
		r.log.Debugf("fd %d, no timeout event", fd)
		return
	}
	r.fdTimers[fd] = r.fdTimeouts.Push(when, fd)
	r.log.Debugf("fd %d, timeout event at %s", fd, when.Format(time.RFC3339Nano))
}

func (r *Reactor) removeTimeout(fd int) {
	if t, ok := r.fdTimers[fd]; ok {
		r.fdTimeouts.Remove(t)
		delete(r.fdTimers, fd)
	}
}

// refresh re-derives the monitored conditions and the timeout of fd after
// its dispatcher handled an event.
func (r *Reactor) refresh(fd int) error {
	d, ok := r.dispatchers[fd]
	if !ok {
		return nil
	}

	r.removeTimeout(fd)

	mask := r.maskOf(d)
	if old := r.monitored[fd]; old != mask {
		r.log.Debugf("modifying fd %d, flags (%s) -> (%s)", fd, old, mask)
		if err := r.mux.Modify(fd, mask); err != nil {
			return err
		}
		r.monitored[fd] = mask
	}

	r.pushTimeout(fd, d)
	return nil
}

// nearest returns how long the multiplexer may block: -1 without any timer,
// 0 if a timer is already due.
func (r *Reactor) nearest(now time.Time) time.Duration {
	var (
		when  time.Time
		found bool
	)
	if t, ok := r.fdTimeouts.Peek(); ok {
		when, found = t.When, true
	}
	if j, ok := r.jobs.Peek(); ok && (!found || j.When.Before(when)) {
		when, found = j.When, true
	}

	if !found {
		return -1
	}
	if d := when.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Run executes iterations until Stop is called or there is nothing left to
// monitor. It returns nil in both cases.
//
// Run also returns when a handler returns or panics with an error wrapping
// aeerrors.ErrExitNow, or when the multiplexer fails.
func (r *Reactor) Run() error {
	r.log.Noticef("starting %s", r)
	defer r.log.Noticef("finishing %s", r)

	for !r.Stopped() && (len(r.dispatchers) > 0 || r.jobs.Len() > 0) {
		if err := r.RunOnce(); err != nil {
			return err
		}
	}
	return nil
}

// RunOnce waits for the nearest event and handles it:
//   - every descriptor reported ready is dispatched in the order the
//     multiplexer reported it
//   - if none is ready, the expired descriptor timeouts and then the expired
//     jobs are fired, earliest first
func (r *Reactor) RunOnce() error {
	events, err := r.mux.Poll(r.nearest(r.clock.Now()))
	if err != nil {
		return err
	}

	ready := 0
	for _, ev := range events {
		if r.waker != nil && ev.Fd == r.waker.Fd() {
			r.waker.Drain()
			continue
		}
		ready++

		d, ok := r.dispatchers[ev.Fd]
		if !ok {
			r.log.Debugf("fd %d, events fired for an unregistered fd", ev.Fd)
			continue
		}

		r.log.Debugf("events fired, fd %d, flags (%s)", ev.Fd, ev.Mask)
		if err := r.dispatch(ev.Fd, d, ev.Mask); err != nil {
			return err
		}
		if err := r.refresh(ev.Fd); err != nil {
			return err
		}
	}

	if ready > 0 {
		return nil
	}
	return r.expire(r.clock.Now())
}

// dispatch delivers the conditions in mask to d: priority, read, write and
// then hang up or error. The registration of fd is checked before each one
// since a handler may unregister d.
func (r *Reactor) dispatch(fd int, d Dispatcher, mask internal.Mask) error {
	steps := [...]struct {
		mask internal.Mask
		fn   func(*Reactor) error
	}{
		{internal.MaskPriority, d.HandleExptEvent},
		{internal.MaskRead, d.HandleReadEvent},
		{internal.MaskWrite, d.HandleWriteEvent},
		{internal.MaskHangup | internal.MaskError, func(r *Reactor) error {
			d.HandleClose(r)
			return nil
		}},
	}

	for _, step := range steps {
		if mask&step.mask == 0 || !r.Registered(fd) {
			continue
		}
		if err := r.invoke(step.fn); err != nil {
			return r.fail(d, err)
		}
	}
	return nil
}

// fail routes err to the error handler of d. Only exit requests are returned.
func (r *Reactor) fail(d Dispatcher, err error) error {
	if aeerrors.IsExitNow(err) {
		return err
	}
	herr := r.invoke(func(r *Reactor) error {
		d.HandleError(r, err)
		return nil
	})
	if herr != nil && !aeerrors.IsExitNow(herr) {
		r.log.Errorf("fd %d, error handler failed: %+v", d.Fd(), herr)
		return nil
	}
	return herr
}

// invoke runs a handler, turning a panic into an error.
func (r *Reactor) invoke(fn func(*Reactor) error) (err error) {
	if r.stats != nil {
		start := time.Now()
		defer func() {
			r.stats.Add(max(time.Since(start).Microseconds(), 1))
		}()
	}

	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				if aeerrors.IsExitNow(e) {
					err = e
					return
				}
				err = fmt.Errorf("handler panicked: %w", e)
				return
			}
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()

	return fn(r)
}

func (r *Reactor) expire(now time.Time) error {
	for _, t := range r.fdTimeouts.PopExpired(now) {
		fd := t.Value

		// An earlier handler of this batch may have unregistered the owner
		// of fd and registered another dispatcher on the same descriptor.
		if cur, ok := r.fdTimers[fd]; !ok || cur != t {
			continue
		}
		delete(r.fdTimers, fd)

		d, ok := r.dispatchers[fd]
		if !ok {
			continue
		}

		r.log.Debugf("fd %d, timeout event fired", fd)
		if err := r.invoke(d.HandleTimeoutEvent); err != nil {
			if err := r.fail(d, err); err != nil {
				return err
			}
		}
		if err := r.refresh(fd); err != nil {
			return err
		}
	}

	for _, t := range r.jobs.PopExpired(now) {
		job := t.Value
		if err := r.invoke(job.HandleJob); err != nil {
			if aeerrors.IsExitNow(err) {
				return err
			}
			r.log.Warningf("job %T failed, not rescheduled: %+v", job, err)
			continue
		}

		if when := job.Schedule(); !when.IsZero() {
			r.jobs.Push(when, job)
		}
	}

	return nil
}

// Close releases the multiplexer and the wake up channel. Registered
// dispatchers are forgotten but not closed.
func (r *Reactor) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	r.dispatchers = make(map[int]Dispatcher)
	r.monitored = make(map[int]internal.Mask)
	r.fdTimeouts = internal.NewDeadlineQueue[int]()
	r.fdTimers = make(map[int]*internal.Deadline[int])
	r.jobs = internal.NewDeadlineQueue[ScheduledJob]()

	var err error
	if r.waker != nil {
		err = r.waker.Close()
	}
	if cerr := r.mux.Close(); err == nil {
		err = cerr
	}
	return err
}

func (r *Reactor) String() string {
	wakerFd := -1
	if r.waker != nil {
		wakerFd = r.waker.Fd()
	}
	return fmt.Sprintf(
		"Reactor{api:%s, mux_fd:%d, waker_fd:%d, dispatchers:%d, jobs:%d, stopped:%t}",
		r.api, r.mux.Fd(), wakerFd, len(r.dispatchers), r.jobs.Len(), r.Stopped(),
	)
}
