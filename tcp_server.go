package asyncevent

import (
	"errors"
	"fmt"
	"net"

	"github.com/talostrading/asyncevent/aeopts"
	"github.com/talostrading/asyncevent/internal"
	"golang.org/x/sys/unix"
)

// ServingPreparer takes over a connection accepted by a TCPServer.
type ServingPreparer interface {
	// PrepareServingClient owns fd, a connected non-blocking socket, from
	// the moment it is called.
	PrepareServingClient(r *Reactor, fd int, peer net.Addr) error
}

// TCPServer is a dispatcher for a listening IPv4 TCP socket. Accepted
// connections are handed to PrepareServingClient, which embedding types
// override to register a dispatcher for them.
type TCPServer struct {
	*SocketDispatcher

	backlog   int
	accepting bool
}

var (
	_ Dispatcher      = &TCPServer{}
	_ ServingPreparer = &TCPServer{}
)

// NewTCPServer creates a server without a socket. self is the value embedding
// the server, or nil if it is used as is.
//
// Options: ReuseAddr (true by default) and Backlog (SOMAXCONN by default).
// NoDelay and ReusePort are applied to the listening socket. WithLogger is
// also recognised. Nonblocking(false) makes Initialize fail.
func NewTCPServer(self Handler, opts ...aeopts.Option) *TCPServer {
	s := &TCPServer{
		backlog: unix.SOMAXCONN,
	}
	if opt, ok := aeopts.Find(aeopts.TypeBacklog, opts); ok {
		s.backlog = opt.Value().(int)
	}
	if self == nil {
		self = s
	}
	s.SocketDispatcher = newSocketDispatcher(self, opts...)
	return s
}

// Initialize creates a non-blocking socket, binds it to local ("host:port",
// port 0 picks an ephemeral port) and listens.
func (s *TCPServer) Initialize(local string) error {
	if err := s.create(); err != nil {
		return err
	}
	if err := s.bind(local, s.reuseAddr()); err != nil {
		return err
	}
	return s.Listen(s.backlog)
}

// Wrap adopts fd, which must be a TCP socket. It accepts connections if fd
// is already listening.
func (s *TCPServer) Wrap(fd int) error {
	if err := s.wrap(fd); err != nil {
		return err
	}
	s.refreshLocalAddr()

	listening, err := internal.IsListening(fd)
	if err != nil {
		return err
	}
	s.accepting = listening
	return nil
}

func (s *TCPServer) Listen(backlog int) error {
	if err := internal.Listen(s.fd, backlog); err != nil {
		return err
	}
	s.backlog = backlog
	s.accepting = true
	s.Logger().Noticef("server socket is ready %s", s)
	return nil
}

func (s *TCPServer) Accepting() bool {
	return s.accepting
}

func (s *TCPServer) Backlog() int {
	return s.backlog
}

// Accept accepts a pending connection. If there is none, or the connection
// was aborted before it could be accepted, it returns -1 and no error.
func (s *TCPServer) Accept() (int, net.Addr, error) {
	fd, peer, err := internal.Accept(s.fd)
	if err != nil {
		if internal.IsTransient(err) || errors.Is(err, unix.ECONNABORTED) {
			return -1, nil, nil
		}
		s.Logger().Warningf("fd %d, unexpected accept error: %v", s.fd, err)
		return -1, nil, fmt.Errorf("accept: %w", err)
	}

	s.Logger().Infof("new connection accepted, fd %d, peer address %s", fd, peer)
	return fd, peer, nil
}

// PrepareServingClient refuses service: fd is closed right away.
func (s *TCPServer) PrepareServingClient(_ *Reactor, fd int, peer net.Addr) error {
	s.Logger().Noticef("%T: using default PrepareServingClient", s.Self())
	s.Logger().Infof("closing newly accepted connection without serving, fd %d, peer address %s", fd, peer)
	return internal.Close(fd)
}

func (s *TCPServer) MonitorReadable() bool {
	return s.accepting
}

func (s *TCPServer) MonitorWritable() bool {
	return false
}

// HandleRead accepts one connection and hands it to PrepareServingClient.
// Embedding types may override it, to filter peers for example.
func (s *TCPServer) HandleRead(r *Reactor) error {
	fd, peer, err := s.Accept()
	if err != nil || fd < 0 {
		return err
	}

	if p, ok := s.Self().(ServingPreparer); ok {
		return p.PrepareServingClient(r, fd, peer)
	}
	return s.PrepareServingClient(r, fd, peer)
}

func (s *TCPServer) Close() error {
	s.accepting = false
	return s.SocketDispatcher.Close()
}

func (s *TCPServer) String() string {
	return fmt.Sprintf(
		"%T{fd:%d, family:%s, type:%s, accepting:%t, local:%s, backlog:%d}",
		s.Self(), s.fd, s.SocketFamily(), s.SocketType(), s.accepting, s.localAddrString(), s.backlog,
	)
}
