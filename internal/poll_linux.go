//go:build linux

package internal

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

const (
	minEvents = 128
	maxEvents = 4096
)

var _ Multiplexer = &Epoll{}

// epollWait is replaced in tests.
var epollWait = unix.EpollWait

type Epoll struct {
	// fd is the file descriptor returned by calling epoll_create1.
	fd int

	// events is filled by epoll_wait. It doubles in size, up to maxEvents,
	// every time a call fills it completely.
	events []unix.EpollEvent

	// ready is handed out by Poll, translated from events.
	ready []Event

	closed uint32
}

func NewEpoll() (*Epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}

	return &Epoll{
		fd:     fd,
		events: make([]unix.EpollEvent, minEvents),
		ready:  make([]Event, 0, minEvents),
	}, nil
}

func toEpoll(mask Mask) uint32 {
	var flags uint32
	if mask&MaskRead != 0 {
		flags |= unix.EPOLLIN
	}
	if mask&MaskPriority != 0 {
		flags |= unix.EPOLLPRI
	}
	if mask&MaskWrite != 0 {
		flags |= unix.EPOLLOUT
	}
	return flags
}

func fromEpoll(flags uint32) (mask Mask) {
	if flags&unix.EPOLLIN != 0 {
		mask |= MaskRead
	}
	if flags&unix.EPOLLPRI != 0 {
		mask |= MaskPriority
	}
	if flags&unix.EPOLLOUT != 0 {
		mask |= MaskWrite
	}
	if flags&unix.EPOLLHUP != 0 {
		mask |= MaskHangup
	}
	if flags&unix.EPOLLERR != 0 {
		mask |= MaskError
	}
	return mask
}

func (p *Epoll) Register(fd int, mask Mask) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, mask, "epoll_ctl_add")
}

func (p *Epoll) Modify(fd int, mask Mask) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, mask, "epoll_ctl_mod")
}

func (p *Epoll) Unregister(fd int) error {
	// A non-nil event keeps kernels older than 2.6.9 happy.
	return p.ctl(unix.EPOLL_CTL_DEL, fd, 0, "epoll_ctl_del")
}

func (p *Epoll) ctl(op, fd int, mask Mask, name string) error {
	ev := unix.EpollEvent{
		Events: toEpoll(mask),
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.fd, op, fd, &ev); err != nil {
		if op != unix.EPOLL_CTL_ADD && errors.Is(err, unix.ENOENT) {
			return ErrUnknownFd
		}
		return os.NewSyscallError(name, err)
	}
	return nil
}

func (p *Epoll) Poll(timeout time.Duration) ([]Event, error) {
	n, err := epollWait(p.fd, p.events, timeoutMs(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, os.NewSyscallError("epoll_wait", err)
	}

	p.ready = p.ready[:0]
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		p.ready = append(p.ready, Event{
			Fd:   int(ev.Fd),
			Mask: fromEpoll(ev.Events),
		})
	}

	if n == len(p.events) && n < maxEvents {
		p.events = make([]unix.EpollEvent, n*2)
	}

	return p.ready, nil
}

func (p *Epoll) Fd() int {
	return p.fd
}

func (p *Epoll) Name() string {
	return "epoll"
}

func (p *Epoll) Close() error {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return io.EOF
	}
	return unix.Close(p.fd)
}
