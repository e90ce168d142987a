//go:build darwin || netbsd || freebsd || openbsd || dragonfly || linux

package internal

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/talostrading/asyncevent/aeopts"
	"golang.org/x/sys/unix"
)

// ResolveTCP4 resolves a "host:port" string into an IPv4 TCP address. Beware
// that resolving a host name goes through DNS and may block.
func ResolveTCP4(addr string) (*net.TCPAddr, error) {
	return net.ResolveTCPAddr("tcp4", addr)
}

// CreateSocket creates a non-blocking, close-on-exec IPv4 stream socket.
func CreateSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, os.NewSyscallError("set_nonblock", err)
	}
	return fd, nil
}

// ApplyOpts applies the socket level options in opts. Options of other types
// are ignored.
func ApplyOpts(fd int, opts ...aeopts.Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch t := opt.Type(); t {
		case aeopts.TypeNonblocking:
			v := opt.Value().(bool)
			if err := unix.SetNonblock(fd, v); err != nil {
				return os.NewSyscallError(fmt.Sprintf("set_nonblock(%v)", v), err)
			}
		case aeopts.TypeReusePort:
			v := opt.Value().(bool)
			if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolToInt(v)); err != nil {
				return os.NewSyscallError(fmt.Sprintf("reuse_port(%v)", v), err)
			}
		case aeopts.TypeReuseAddr:
			v := opt.Value().(bool)
			if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolToInt(v)); err != nil {
				return os.NewSyscallError(fmt.Sprintf("reuse_address(%v)", v), err)
			}
		case aeopts.TypeNoDelay:
			v := opt.Value().(bool)
			if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolToInt(v)); err != nil {
				return os.NewSyscallError(fmt.Sprintf("tcp_no_delay(%v)", v), err)
			}
		}
	}

	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func Bind(fd int, addr *net.TCPAddr) error {
	sa, err := ToSockaddr(addr)
	if err != nil {
		return err
	}
	if err := unix.Bind(fd, sa); err != nil {
		return os.NewSyscallError("bind", err)
	}
	return nil
}

// Connect issues a connect on a non-blocking socket. The raw errno is
// returned so callers can tell an in-progress connect from a failure.
func Connect(fd int, addr *net.TCPAddr) error {
	sa, err := ToSockaddr(addr)
	if err != nil {
		return err
	}
	return unix.Connect(fd, sa)
}

func Listen(fd, backlog int) error {
	if err := unix.Listen(fd, backlog); err != nil {
		return os.NewSyscallError("listen", err)
	}
	return nil
}

// Accept accepts a connection and makes it non-blocking and close-on-exec.
// The raw errno is returned on failure.
func Accept(fd int) (int, net.Addr, error) {
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, err
	}
	unix.CloseOnExec(nfd)

	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, nil, os.NewSyscallError("set_nonblock", err)
	}
	return nfd, FromSockaddrTCP(sa), nil
}

// SocketError returns the pending error of fd, cleared by the call, or nil.
func SocketError(fd int) error {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt", err)
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

func SocketAddress(fd int) (net.Addr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, os.NewSyscallError("getsockname", err)
	}
	return FromSockaddrTCP(sa), nil
}

// PeerAddress returns the remote address of fd. A socket which is not
// connected fails with ENOTCONN.
func PeerAddress(fd int) (net.Addr, error) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return nil, err
	}
	return FromSockaddrTCP(sa), nil
}

// IsNotConnected reports whether err is ENOTCONN.
func IsNotConnected(err error) bool {
	return errors.Is(err, unix.ENOTCONN)
}

func IsNonblocking(fd int) (bool, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return false, err
	}

	return flags&unix.O_NONBLOCK != 0, nil
}

func IsNoDelay(fd int) (bool, error) {
	v, err := unix.GetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func IsReuseAddr(fd int) (bool, error) {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func Close(fd int) error {
	return unix.Close(fd)
}

// SocketKind returns the address family and the type of the socket fd.
func SocketKind(fd int) (family, sotype int, err error) {
	sotype, err = unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return -1, -1, os.NewSyscallError("getsockopt", err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		return -1, -1, os.NewSyscallError("getsockname", err)
	}
	switch sa.(type) {
	case *unix.SockaddrInet4:
		family = unix.AF_INET
	case *unix.SockaddrInet6:
		family = unix.AF_INET6
	case *unix.SockaddrUnix:
		family = unix.AF_UNIX
	default:
		family = -1
	}
	return family, sotype, nil
}

// IsListening reports whether fd is a listening socket.
func IsListening(fd int) (bool, error) {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ACCEPTCONN)
	if err != nil {
		return false, os.NewSyscallError("getsockopt", err)
	}
	return v != 0, nil
}
