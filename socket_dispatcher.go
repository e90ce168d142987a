package asyncevent

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"

	"github.com/talostrading/asyncevent/aeerrors"
	"github.com/talostrading/asyncevent/aeopts"
	"github.com/talostrading/asyncevent/internal"
	"golang.org/x/sys/unix"
)

// SocketDispatcher is a dispatcher owning a socket. It is the common part of
// TCPClient and TCPServer.
type SocketDispatcher struct {
	*BaseDispatcher

	fd     int
	family int
	sotype int
	local  net.Addr

	// opts are the options given at construction, applied to every socket
	// created by the dispatcher.
	opts []aeopts.Option

	closed uint32
}

func newSocketDispatcher(self Handler, opts ...aeopts.Option) *SocketDispatcher {
	return &SocketDispatcher{
		BaseDispatcher: NewBaseDispatcher(self, opts...),
		fd:             -1,
		family:         -1,
		sotype:         -1,
		opts:           opts,
	}
}

// Fd returns the descriptor of the socket, or -1 if there is none yet. The
// descriptor is still returned after Close.
func (s *SocketDispatcher) Fd() int {
	return s.fd
}

// Close closes the socket. Closing twice returns aeerrors.ErrClosed.
func (s *SocketDispatcher) Close() error {
	if s.fd < 0 || !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return aeerrors.ErrClosed
	}
	return internal.Close(s.fd)
}

func (s *SocketDispatcher) Closed() bool {
	return atomic.LoadUint32(&s.closed) == 1
}

// LocalAddr is nil until the socket is bound or connected.
func (s *SocketDispatcher) LocalAddr() net.Addr {
	return s.local
}

func (s *SocketDispatcher) SocketFamily() string {
	switch s.family {
	case unix.AF_INET:
		return "AF_INET"
	case unix.AF_INET6:
		return "AF_INET6"
	case unix.AF_UNIX:
		return "AF_UNIX"
	default:
		return "unknown"
	}
}

func (s *SocketDispatcher) SocketType() string {
	switch s.sotype {
	case unix.SOCK_STREAM:
		return "SOCK_STREAM"
	case unix.SOCK_DGRAM:
		return "SOCK_DGRAM"
	default:
		return "unknown"
	}
}

// Read reads from the socket without blocking. It returns
// aeerrors.ErrWouldBlock if nothing is available and io.EOF once the peer
// closed its side.
func (s *SocketDispatcher) Read(b []byte) (int, error) {
	n, err := unix.Read(s.fd, b)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, aeerrors.ErrWouldBlock
		}
		return 0, os.NewSyscallError("read", err)
	}
	if n == 0 && len(b) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes to the socket without blocking. It may write less than len(b);
// aeerrors.ErrWouldBlock is returned if nothing could be written.
func (s *SocketDispatcher) Write(b []byte) (int, error) {
	n, err := unix.Write(s.fd, b)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, aeerrors.ErrWouldBlock
		}
		return 0, os.NewSyscallError("write", err)
	}
	return n, nil
}

func (s *SocketDispatcher) localAddrString() string {
	if s.local == nil {
		return "not_available"
	}
	return s.local.String()
}

// create opens a new IPv4 stream socket and applies the construction options
// except SO_REUSEADDR, which only matters when binding. The reactor requires
// non-blocking sockets, so Nonblocking(false) is rejected.
func (s *SocketDispatcher) create() error {
	if opt, ok := aeopts.Find(aeopts.TypeNonblocking, s.opts); ok && !opt.Value().(bool) {
		return fmt.Errorf("%w: blocking sockets cannot be dispatched", aeerrors.ErrUnsupported)
	}

	fd, err := internal.CreateSocket()
	if err != nil {
		return err
	}

	var opts []aeopts.Option
	for _, opt := range s.opts {
		if opt == nil {
			continue
		}
		switch opt.Type() {
		case aeopts.TypeReuseAddr, aeopts.TypeNonblocking:
		default:
			opts = append(opts, opt)
		}
	}
	if err := internal.ApplyOpts(fd, opts...); err != nil {
		_ = internal.Close(fd)
		return err
	}

	s.adopt(fd, unix.AF_INET, unix.SOCK_STREAM)
	return nil
}

func (s *SocketDispatcher) adopt(fd, family, sotype int) {
	s.fd = fd
	s.family = family
	s.sotype = sotype
	atomic.StoreUint32(&s.closed, 0)
}

// wrap adopts an existing socket, switching it to non-blocking mode.
func (s *SocketDispatcher) wrap(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return os.NewSyscallError("set_nonblock", err)
	}
	family, sotype, err := internal.SocketKind(fd)
	if err != nil {
		return err
	}
	s.adopt(fd, family, sotype)
	return nil
}

// bind binds the socket to addr. SO_REUSEADDR is set when reuse is requested
// and the port is not zero.
func (s *SocketDispatcher) bind(addr string, reuse bool) error {
	local, err := internal.ResolveTCP4(addr)
	if err != nil {
		return err
	}

	s.Logger().Infof("fd %d, binding to local address %s, SO_REUSEADDR %t", s.fd, local, reuse)
	if reuse && local.Port != 0 {
		if err := internal.ApplyOpts(s.fd, aeopts.ReuseAddr(true)); err != nil {
			s.Logger().Noticef("fd %d, failed setting SO_REUSEADDR: %v", s.fd, err)
		}
	}

	if err := internal.Bind(s.fd, local); err != nil {
		return err
	}
	s.refreshLocalAddr()
	return nil
}

func (s *SocketDispatcher) refreshLocalAddr() {
	addr, err := internal.SocketAddress(s.fd)
	if err != nil {
		s.Logger().Noticef("fd %d, could not read local address: %v", s.fd, err)
		return
	}
	s.local = addr
}

// reuseAddr returns the ReuseAddr option given at construction, true by
// default.
func (s *SocketDispatcher) reuseAddr() bool {
	if opt, ok := aeopts.Find(aeopts.TypeReuseAddr, s.opts); ok {
		return opt.Value().(bool)
	}
	return true
}

// bindAddr returns the BindSocket option given at construction, if any.
func (s *SocketDispatcher) bindAddr() (string, bool) {
	if opt, ok := aeopts.Find(aeopts.TypeBindSocket, s.opts); ok {
		return opt.Value().(string), true
	}
	return "", false
}

func (s *SocketDispatcher) String() string {
	return fmt.Sprintf(
		"%T{fd:%d, family:%s, type:%s, local:%s}",
		s.Self(), s.fd, s.SocketFamily(), s.SocketType(), s.localAddrString(),
	)
}
