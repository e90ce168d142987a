//go:build linux || darwin

package internal

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

var _ Multiplexer = &Select{}

// selectFds is replaced in tests.
var selectFds = unix.Select

// FdSetSize is the largest descriptor select(2) can watch, plus one.
const FdSetSize = 1024

// Select is the last resort backend, built on select(2). Like Poll it rescans
// every registered descriptor on each call. Exceptional conditions reported
// by select are out-of-band data, so they surface as MaskPriority.
type Select struct {
	fds   []int
	masks map[int]Mask

	rset, wset, eset unix.FdSet

	ready []Event

	closed uint32
}

func NewSelect() (*Select, error) {
	return &Select{
		masks: make(map[int]Mask),
	}, nil
}

func (p *Select) Register(fd int, mask Mask) error {
	if fd < 0 || fd >= FdSetSize {
		return os.NewSyscallError("select_register", unix.EINVAL)
	}
	if _, ok := p.masks[fd]; ok {
		return os.NewSyscallError("select_register", unix.EEXIST)
	}
	p.masks[fd] = mask
	p.fds = append(p.fds, fd)
	return nil
}

func (p *Select) Modify(fd int, mask Mask) error {
	if _, ok := p.masks[fd]; !ok {
		return ErrUnknownFd
	}
	p.masks[fd] = mask
	return nil
}

func (p *Select) Unregister(fd int) error {
	if _, ok := p.masks[fd]; !ok {
		return ErrUnknownFd
	}
	delete(p.masks, fd)
	for i, x := range p.fds {
		if x == fd {
			p.fds = append(p.fds[:i], p.fds[i+1:]...)
			break
		}
	}
	return nil
}

func (p *Select) Poll(timeout time.Duration) ([]Event, error) {
	p.rset.Zero()
	p.wset.Zero()
	p.eset.Zero()

	nfd := 0
	for _, fd := range p.fds {
		mask := p.masks[fd]
		if mask&MaskRead != 0 {
			p.rset.Set(fd)
		}
		if mask&MaskWrite != 0 {
			p.wset.Set(fd)
		}
		if mask&MaskPriority != 0 {
			p.eset.Set(fd)
		}
		if mask != 0 && fd+1 > nfd {
			nfd = fd + 1
		}
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}

	n, err := selectFds(nfd, &p.rset, &p.wset, &p.eset, tv)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, os.NewSyscallError("select", err)
	}

	p.ready = p.ready[:0]
	if n == 0 {
		return p.ready, nil
	}

	for _, fd := range p.fds {
		var mask Mask
		if p.rset.IsSet(fd) {
			mask |= MaskRead
		}
		if p.wset.IsSet(fd) {
			mask |= MaskWrite
		}
		if p.eset.IsSet(fd) {
			mask |= MaskPriority
		}
		if mask != 0 {
			p.ready = append(p.ready, Event{Fd: fd, Mask: mask})
		}
	}
	return p.ready, nil
}

func (p *Select) Fd() int {
	return -1
}

func (p *Select) Name() string {
	return "select"
}

func (p *Select) Close() error {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return io.EOF
	}
	p.fds = nil
	return nil
}

func newSelect() (Multiplexer, error) {
	return NewSelect()
}
