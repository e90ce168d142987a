//go:build darwin || netbsd || freebsd || openbsd || dragonfly || linux

package internal

import (
	"fmt"
	"net"
	"reflect"

	"github.com/talostrading/asyncevent/aeerrors"
	"golang.org/x/sys/unix"
)

// ToSockaddr converts an IPv4 TCP address. IPv6 is not supported.
func ToSockaddr(addr net.Addr) (unix.Sockaddr, error) {
	switch addr := addr.(type) {
	case *net.TCPAddr:
		ip := addr.IP
		if len(ip) == 0 {
			ip = net.IPv4zero
		}
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("%w: ipv6 address %s", aeerrors.ErrUnsupported, addr)
		}

		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	default:
		return nil, fmt.Errorf("%w: address type %s", aeerrors.ErrUnsupported, reflect.TypeOf(addr))
	}
}

func FromSockaddrTCP(sockAddr unix.Sockaddr) net.Addr {
	switch addr := sockAddr.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{
			IP:   append([]byte{}, addr.Addr[:]...),
			Port: addr.Port,
		}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{
			IP:   append([]byte{}, addr.Addr[:]...),
			Port: addr.Port,
		}
	default:
		return nil
	}
}
