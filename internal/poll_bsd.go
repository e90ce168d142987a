//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package internal

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

var _ Multiplexer = &Kqueue{}

// kevent is replaced in tests.
var kevent = unix.Kevent

type Kqueue struct {
	kq int

	// monitored mirrors the filters installed for each descriptor. kqueue
	// has no notion of a registration without filters so this is the only
	// record of descriptors registered with an empty mask.
	monitored map[int]Mask

	changelist []unix.Kevent_t
	eventlist  []unix.Kevent_t

	ready []Event
	index map[int]int

	closed uint32
}

func NewKqueue() (*Kqueue, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(kq)

	return &Kqueue{
		kq:         kq,
		monitored:  make(map[int]Mask),
		changelist: make([]unix.Kevent_t, 0, 2),
		eventlist:  make([]unix.Kevent_t, 128),
		index:      make(map[int]int),
	}, nil
}

func (p *Kqueue) Register(fd int, mask Mask) error {
	if _, ok := p.monitored[fd]; ok {
		return os.NewSyscallError("kevent", unix.EEXIST)
	}
	if err := p.apply(fd, 0, mask); err != nil {
		return err
	}
	p.monitored[fd] = mask
	return nil
}

func (p *Kqueue) Modify(fd int, mask Mask) error {
	old, ok := p.monitored[fd]
	if !ok {
		return ErrUnknownFd
	}
	if err := p.apply(fd, old, mask); err != nil {
		return err
	}
	p.monitored[fd] = mask
	return nil
}

func (p *Kqueue) Unregister(fd int) error {
	old, ok := p.monitored[fd]
	if !ok {
		return ErrUnknownFd
	}
	delete(p.monitored, fd)

	err := p.apply(fd, old, 0)
	// Closing a descriptor removes its filters.
	if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EBADF) {
		err = nil
	}
	return err
}

func (p *Kqueue) apply(fd int, old, mask Mask) error {
	p.changelist = p.changelist[:0]

	wasRead, isRead := old&(MaskRead|MaskPriority) != 0, mask&(MaskRead|MaskPriority) != 0
	if wasRead != isRead {
		var ev unix.Kevent_t
		if isRead {
			unix.SetKevent(&ev, fd, unix.EVFILT_READ, unix.EV_ADD)
		} else {
			unix.SetKevent(&ev, fd, unix.EVFILT_READ, unix.EV_DELETE)
		}
		p.changelist = append(p.changelist, ev)
	}

	wasWrite, isWrite := old&MaskWrite != 0, mask&MaskWrite != 0
	if wasWrite != isWrite {
		var ev unix.Kevent_t
		if isWrite {
			unix.SetKevent(&ev, fd, unix.EVFILT_WRITE, unix.EV_ADD)
		} else {
			unix.SetKevent(&ev, fd, unix.EVFILT_WRITE, unix.EV_DELETE)
		}
		p.changelist = append(p.changelist, ev)
	}

	if len(p.changelist) == 0 {
		return nil
	}

	for {
		_, err := unix.Kevent(p.kq, p.changelist, nil, nil)
		if err == nil {
			return nil
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return os.NewSyscallError("kevent", err)
	}
}

func (p *Kqueue) Poll(timeout time.Duration) ([]Event, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs(timeout)) * int64(time.Millisecond))
		ts = &t
	}

	n, err := kevent(p.kq, nil, p.eventlist, ts)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, os.NewSyscallError("kevent", err)
	}

	// kqueue reports one event per filter; merge them into one entry per
	// descriptor, keeping the order in which descriptors were first seen.
	p.ready = p.ready[:0]
	for fd := range p.index {
		delete(p.index, fd)
	}

	for i := 0; i < n; i++ {
		ev := &p.eventlist[i]
		fd := int(ev.Ident)

		var mask Mask
		switch ev.Filter {
		case unix.EVFILT_READ:
			mask |= MaskRead
		case unix.EVFILT_WRITE:
			mask |= MaskWrite
		}
		if ev.Flags&unix.EV_EOF != 0 {
			mask |= MaskHangup
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			mask |= MaskError
		}

		if j, ok := p.index[fd]; ok {
			p.ready[j].Mask |= mask
		} else {
			p.index[fd] = len(p.ready)
			p.ready = append(p.ready, Event{Fd: fd, Mask: mask})
		}
	}

	return p.ready, nil
}

func (p *Kqueue) Fd() int {
	return p.kq
}

func (p *Kqueue) Name() string {
	return "kqueue"
}

func (p *Kqueue) Close() error {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return io.EOF
	}
	return unix.Close(p.kq)
}
