package asyncevent

import (
	"fmt"
	"time"

	"github.com/talostrading/asyncevent/aeopts"
)

// Handler is the part of a dispatcher meant to be overridden by user code.
//
// Readable, Writable and Timeout are queried after every event delivered to
// the dispatcher, so the set of monitored conditions follows the state of the
// handler. A zero Timeout means no timeout.
type Handler interface {
	Fd() int
	Close() error

	Readable() bool
	Writable() bool
	Timeout() time.Time

	HandleRead(r *Reactor) error
	HandleWrite(r *Reactor) error
	HandleTimeout(r *Reactor) error
	HandleExpt(r *Reactor) error

	// HandleError is called with any error returned by, or panic raised from,
	// the handlers above.
	HandleError(r *Reactor, err error)

	// HandleClose is called on hang up or error conditions of the descriptor.
	HandleClose(r *Reactor)
}

// Dispatcher is what a Reactor monitors. The Monitor* queries and Handle*Event
// wrappers sit between the reactor and the Handler so specialised dispatchers,
// like TCPClient, can intercept events before user handlers run.
type Dispatcher interface {
	Handler

	MonitorReadable() bool
	MonitorWritable() bool
	MonitorTimeout() time.Time

	HandleReadEvent(r *Reactor) error
	HandleWriteEvent(r *Reactor) error
	HandleTimeoutEvent(r *Reactor) error
	HandleExptEvent(r *Reactor) error
}

// BaseDispatcher implements every method of Dispatcher except Fd and Close.
//
// Go has no virtual methods, so BaseDispatcher keeps a reference to the
// outermost value embedding it: the wrappers call the handlers through it and
// the overrides of the embedding type are the ones which run.
//
//	type Printer struct {
//		*asyncevent.BaseDispatcher
//		fd int
//	}
//
//	p := &Printer{fd: fd}
//	p.BaseDispatcher = asyncevent.NewBaseDispatcher(p)
type BaseDispatcher struct {
	self Handler
	log  Logger
}

// NewBaseDispatcher creates the defaults of self. Only the Logger option is
// considered.
func NewBaseDispatcher(self Handler, opts ...aeopts.Option) *BaseDispatcher {
	return &BaseDispatcher{
		self: self,
		log:  loggerFrom(opts),
	}
}

// Self returns the outermost handler.
func (b *BaseDispatcher) Self() Handler {
	return b.self
}

func (b *BaseDispatcher) Logger() Logger {
	return b.log
}

func (b *BaseDispatcher) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger()
	}
	b.log = l
}

func (b *BaseDispatcher) Readable() bool {
	return true
}

func (b *BaseDispatcher) Writable() bool {
	return true
}

func (b *BaseDispatcher) Timeout() time.Time {
	return time.Time{}
}

func (b *BaseDispatcher) HandleRead(_ *Reactor) error {
	b.log.Noticef("fd %d, unhandled read event (%T)", b.self.Fd(), b.self)
	return nil
}

func (b *BaseDispatcher) HandleWrite(_ *Reactor) error {
	b.log.Noticef("fd %d, unhandled write event (%T)", b.self.Fd(), b.self)
	return nil
}

func (b *BaseDispatcher) HandleTimeout(_ *Reactor) error {
	b.log.Noticef("fd %d, unhandled timeout event (%T)", b.self.Fd(), b.self)
	return nil
}

func (b *BaseDispatcher) HandleExpt(_ *Reactor) error {
	b.log.Noticef("fd %d, unhandled priority event (%T)", b.self.Fd(), b.self)
	return nil
}

// HandleError logs err and closes the dispatcher.
func (b *BaseDispatcher) HandleError(r *Reactor, err error) {
	b.log.Noticef("fd %d, closing after error: %+v", b.self.Fd(), err)
	b.self.HandleClose(r)
}

// HandleClose unregisters the dispatcher from r, when r is not nil, and then
// closes it.
func (b *BaseDispatcher) HandleClose(r *Reactor) {
	fd := b.self.Fd()
	if r != nil && r.Registered(fd) {
		if d, ok := b.self.(Dispatcher); ok {
			if _, err := r.Unregister(d); err != nil {
				b.log.Warningf("fd %d, could not unregister: %v", fd, err)
			}
		}
	}

	if err := b.self.Close(); err != nil {
		b.log.Noticef("fd %d, close failed: %v", fd, err)
	}
}

func (b *BaseDispatcher) MonitorReadable() bool {
	return b.self.Readable()
}

func (b *BaseDispatcher) MonitorWritable() bool {
	return b.self.Writable()
}

func (b *BaseDispatcher) MonitorTimeout() time.Time {
	return b.self.Timeout()
}

func (b *BaseDispatcher) HandleReadEvent(r *Reactor) error {
	return b.self.HandleRead(r)
}

func (b *BaseDispatcher) HandleWriteEvent(r *Reactor) error {
	return b.self.HandleWrite(r)
}

func (b *BaseDispatcher) HandleTimeoutEvent(r *Reactor) error {
	return b.self.HandleTimeout(r)
}

func (b *BaseDispatcher) HandleExptEvent(r *Reactor) error {
	return b.self.HandleExpt(r)
}

func (b *BaseDispatcher) String() string {
	return fmt.Sprintf("%T{fd:%d}", b.self, b.self.Fd())
}
