//go:build darwin || netbsd || freebsd || openbsd || dragonfly || linux

package internal

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

var _ Multiplexer = &Poll{}

// pollFds is replaced in tests.
var pollFds = unix.Poll

// Poll is the portable fallback built on poll(2). The whole descriptor set is
// handed to the kernel on every call, so each call costs O(n) in the number
// of registered descriptors.
type Poll struct {
	pfds  []unix.PollFd
	index map[int]int // fd -> position in pfds

	ready []Event

	closed uint32
}

func NewPoll() (*Poll, error) {
	return &Poll{
		index: make(map[int]int),
	}, nil
}

func toPoll(mask Mask) int16 {
	var events int16
	if mask&MaskRead != 0 {
		events |= unix.POLLIN
	}
	if mask&MaskPriority != 0 {
		events |= unix.POLLPRI
	}
	if mask&MaskWrite != 0 {
		events |= unix.POLLOUT
	}
	return events
}

func fromPoll(revents int16) (mask Mask) {
	if revents&unix.POLLIN != 0 {
		mask |= MaskRead
	}
	if revents&unix.POLLPRI != 0 {
		mask |= MaskPriority
	}
	if revents&unix.POLLOUT != 0 {
		mask |= MaskWrite
	}
	if revents&unix.POLLHUP != 0 {
		mask |= MaskHangup
	}
	if revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		mask |= MaskError
	}
	return mask
}

func (p *Poll) Register(fd int, mask Mask) error {
	if _, ok := p.index[fd]; ok {
		return os.NewSyscallError("poll_register", unix.EEXIST)
	}
	p.index[fd] = len(p.pfds)
	p.pfds = append(p.pfds, unix.PollFd{
		Fd:     int32(fd),
		Events: toPoll(mask),
	})
	return nil
}

func (p *Poll) Modify(fd int, mask Mask) error {
	i, ok := p.index[fd]
	if !ok {
		return ErrUnknownFd
	}
	p.pfds[i].Events = toPoll(mask)
	return nil
}

func (p *Poll) Unregister(fd int) error {
	i, ok := p.index[fd]
	if !ok {
		return ErrUnknownFd
	}
	delete(p.index, fd)

	last := len(p.pfds) - 1
	if i != last {
		p.pfds[i] = p.pfds[last]
		p.index[int(p.pfds[i].Fd)] = i
	}
	p.pfds = p.pfds[:last]
	return nil
}

func (p *Poll) Poll(timeout time.Duration) ([]Event, error) {
	for i := range p.pfds {
		p.pfds[i].Revents = 0
	}

	n, err := pollFds(p.pfds, timeoutMs(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, os.NewSyscallError("poll", err)
	}

	p.ready = p.ready[:0]
	for i := 0; i < len(p.pfds) && len(p.ready) < n; i++ {
		if p.pfds[i].Revents == 0 {
			continue
		}
		p.ready = append(p.ready, Event{
			Fd:   int(p.pfds[i].Fd),
			Mask: fromPoll(p.pfds[i].Revents),
		})
	}
	return p.ready, nil
}

func (p *Poll) Fd() int {
	return -1
}

func (p *Poll) Name() string {
	return "poll"
}

func (p *Poll) Close() error {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return io.EOF
	}
	p.pfds = nil
	return nil
}
