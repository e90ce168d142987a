//go:build darwin || netbsd || freebsd || openbsd || dragonfly || linux

package internal

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

var _ Waker = &Pipe{}

type Pipe struct {
	pipe [2]int
	buf  [64]byte
}

func NewPipe() (*Pipe, error) {
	p := &Pipe{}
	if err := unix.Pipe(p.pipe[:]); err != nil {
		return nil, os.NewSyscallError("pipe", err)
	}
	unix.CloseOnExec(p.pipe[0])
	unix.CloseOnExec(p.pipe[1])
	return p, nil
}

func (p *Pipe) SetReadNonblock() error {
	if err := unix.SetNonblock(p.pipe[0], true); err != nil {
		return os.NewSyscallError("pipe read set_nonblock", err)
	}
	return nil
}

func (p *Pipe) SetWriteNonblock() error {
	if err := unix.SetNonblock(p.pipe[1], true); err != nil {
		return os.NewSyscallError("pipe write set_nonblock", err)
	}
	return nil
}

func (p *Pipe) Write(b []byte) (int, error) {
	return unix.Write(p.pipe[1], b)
}

func (p *Pipe) Read(b []byte) (int, error) {
	return unix.Read(p.pipe[0], b)
}

func (p *Pipe) ReadFd() int {
	return p.pipe[0]
}

func (p *Pipe) WriteFd() int {
	return p.pipe[1]
}

func (p *Pipe) Fd() int {
	return p.pipe[0]
}

// Wake writes a single byte. A full pipe already guarantees a wake up, so
// EAGAIN is not an error.
func (p *Pipe) Wake() error {
	_, err := p.Write([]byte{1})
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return os.NewSyscallError("pipe_write", err)
	}
	return nil
}

func (p *Pipe) Drain() {
	for {
		n, err := p.Read(p.buf[:])
		if err != nil || n < len(p.buf) {
			return
		}
	}
}

func (p *Pipe) Close() error {
	if err := unix.Close(p.pipe[0]); err != nil {
		return err
	}

	return unix.Close(p.pipe[1])
}
