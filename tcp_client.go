package asyncevent

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/talostrading/asyncevent/aeerrors"
	"github.com/talostrading/asyncevent/aeopts"
	"github.com/talostrading/asyncevent/internal"
	"golang.org/x/sys/unix"
)

type ClientState uint8

const (
	ClientUnconnected ClientState = iota
	ClientConnecting
	ClientConnected
	ClientClosed
)

func (s ClientState) String() string {
	switch s {
	case ClientUnconnected:
		return "unconnected"
	case ClientConnecting:
		return "connecting"
	case ClientConnected:
		return "connected"
	case ClientClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TCPClient is a dispatcher for an outgoing IPv4 TCP connection.
//
// Until the connection is established the client monitors writability only,
// with the connect deadline as its timeout, whatever the user handlers
// answer. The user handlers see the connection once it is established.
type TCPClient struct {
	*SocketDispatcher

	state    ClientState
	peer     net.Addr
	deadline time.Time
	clock    Clock
}

var _ Dispatcher = &TCPClient{}

// NewTCPClient creates a client without a socket. self is the value embedding
// the client, or nil if it is used as is.
//
// Options: BindSocket and ReuseAddr (true by default, only applied with a
// non-zero local port) control the local address. NoDelay and ReusePort are
// applied to the socket. Nonblocking(false) makes Initialize fail. WithLogger and WithClock are also recognised.
func NewTCPClient(self Handler, opts ...aeopts.Option) *TCPClient {
	c := &TCPClient{
		clock: clockFrom(opts),
	}
	if self == nil {
		self = c
	}
	c.SocketDispatcher = newSocketDispatcher(self, opts...)
	return c
}

// Initialize creates a non-blocking socket, binds it if BindSocket was given
// and, if peer is not empty, starts connecting to it. A zero connectTimeout
// means the connect attempt has no deadline.
func (c *TCPClient) Initialize(peer string, connectTimeout time.Duration) error {
	if err := c.create(); err != nil {
		return err
	}

	if local, ok := c.bindAddr(); ok {
		if err := c.bind(local, c.reuseAddr()); err != nil {
			return err
		}
	}

	if peer != "" {
		return c.Connect(peer, connectTimeout)
	}
	return nil
}

// Wrap adopts fd, which must be a TCP socket, connected or not.
func (c *TCPClient) Wrap(fd int) error {
	if err := c.wrap(fd); err != nil {
		return err
	}

	peer, err := internal.PeerAddress(fd)
	if err != nil {
		if internal.IsNotConnected(err) {
			c.state = ClientUnconnected
			return nil
		}
		return os.NewSyscallError("getpeername", err)
	}

	c.peer = peer
	c.state = ClientConnected
	c.refreshLocalAddr()
	return nil
}

// Connect starts connecting to peer, a "host:port" string. Beware that a host
// name is resolved through DNS, which blocks.
func (c *TCPClient) Connect(peer string, timeout time.Duration) error {
	addr, err := internal.ResolveTCP4(peer)
	if err != nil {
		return err
	}
	c.peer = addr

	if timeout > 0 {
		c.deadline = c.clock.Now().Add(timeout)
	}

	err = internal.Connect(c.fd, addr)
	switch {
	case err == nil || errors.Is(err, unix.EISCONN):
		c.state = ClientConnected
		c.refreshLocalAddr()
		c.Logger().Infof("fd %d, connected to %s", c.fd, addr)
		return nil
	case internal.IsTransient(err):
		c.state = ClientConnecting
		c.Logger().Infof("fd %d, connecting to %s: %v", c.fd, addr, err)
		return nil
	default:
		return os.NewSyscallError("connect", err)
	}
}

func (c *TCPClient) State() ClientState {
	return c.state
}

func (c *TCPClient) Connected() bool {
	return c.state == ClientConnected
}

// RemoteAddr is the address given to Connect, or the peer of a wrapped
// connected socket.
func (c *TCPClient) RemoteAddr() net.Addr {
	return c.peer
}

// ConnectDeadline is zero if the connect attempt has no deadline.
func (c *TCPClient) ConnectDeadline() time.Time {
	return c.deadline
}

func (c *TCPClient) Close() error {
	c.state = ClientClosed
	return c.SocketDispatcher.Close()
}

func (c *TCPClient) MonitorReadable() bool {
	if c.state != ClientConnected {
		return false
	}
	return c.Self().Readable()
}

func (c *TCPClient) MonitorWritable() bool {
	if c.state != ClientConnected {
		return true
	}
	return c.Self().Writable()
}

// MonitorTimeout is the connect deadline while connecting, the user timeout
// once connected and zero otherwise.
func (c *TCPClient) MonitorTimeout() time.Time {
	switch c.state {
	case ClientConnecting:
		return c.deadline
	case ClientConnected:
		return c.Self().Timeout()
	default:
		return time.Time{}
	}
}

// HandleWriteEvent completes a pending connect. The user write handler is
// only called for established connections.
func (c *TCPClient) HandleWriteEvent(r *Reactor) error {
	if c.state == ClientConnected {
		return c.Self().HandleWrite(r)
	}

	if err := internal.SocketError(c.fd); err != nil {
		return os.NewSyscallError("connect", err)
	}

	peer, err := internal.PeerAddress(c.fd)
	if err != nil {
		if internal.IsNotConnected(err) {
			return fmt.Errorf("fd %d: %w", c.fd, aeerrors.ErrNotConnected)
		}
		return os.NewSyscallError("getpeername", err)
	}

	c.peer = peer
	c.state = ClientConnected
	c.refreshLocalAddr()
	c.Logger().Infof("fd %d, connected to %s", c.fd, peer)
	return nil
}

// HandleTimeoutEvent calls the user timeout handler. When the connect
// deadline passed and the handler left the client registered and connecting,
// aeerrors.ErrTimeout is returned.
func (c *TCPClient) HandleTimeoutEvent(r *Reactor) error {
	connecting := c.state == ClientConnecting && !c.deadline.IsZero()
	if connecting {
		c.Logger().Infof("fd %d, connection to %s timed out", c.fd, c.peer)
	}

	if err := c.Self().HandleTimeout(r); err != nil {
		return err
	}

	if connecting && c.state == ClientConnecting && r != nil && r.Registered(c.fd) {
		return fmt.Errorf("connect to %s: %w", c.peer, aeerrors.ErrTimeout)
	}
	return nil
}

func (c *TCPClient) String() string {
	peer := "not_available"
	if c.peer != nil {
		peer = c.peer.String()
	}
	return fmt.Sprintf(
		"%T{fd:%d, family:%s, type:%s, state:%s, local:%s, peer:%s}",
		c.Self(), c.fd, c.SocketFamily(), c.SocketType(), c.state, c.localAddrString(), peer,
	)
}
