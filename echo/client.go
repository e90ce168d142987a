package echo

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/talostrading/asyncevent"
	"github.com/talostrading/asyncevent/aeerrors"
	"github.com/talostrading/asyncevent/aeopts"
	"github.com/talostrading/asyncevent/util"
	"github.com/valyala/bytebufferpool"
)

type ClientConfig struct {
	// Addr is the "host:port" of the server.
	Addr           string
	ConnectTimeout time.Duration

	// Pings is the number of lines sent, one at a time, each after the echo
	// of the previous one.
	Pings int

	// Idle closes the connection once all pings were echoed, or when the
	// server stays silent, for that long.
	Idle time.Duration

	// Report receives the round trip time histogram, if not nil.
	Report io.Writer
}

func (c *ClientConfig) setDefaults() {
	if c.Pings < 0 {
		c.Pings = 0
	}
	if c.Idle <= 0 {
		c.Idle = 3 * time.Second
	}
}

// Client pings an echo server over one connection.
type Client struct {
	*asyncevent.TCPClient

	cfg   ClientConfig
	clock asyncevent.Clock

	in  *bytebufferpool.ByteBuffer
	out *bytebufferpool.ByteBuffer

	greeting     string
	sent         int
	echoed       int
	waiting      bool
	lastActivity time.Time

	rtt *util.TtyHist
}

// NewClient creates a client and starts connecting to cfg.Addr.
func NewClient(cfg ClientConfig, opts ...aeopts.Option) (*Client, error) {
	cfg.setDefaults()

	c := &Client{
		cfg:   cfg,
		clock: asyncevent.SystemClock,
		in:    bytebufferpool.Get(),
		out:   bytebufferpool.Get(),
		rtt: util.NewTtyHist(util.TtyHistOpts{
			Name:      "echo_rtt",
			Scale:     "us",
			N:         int64(max(cfg.Pings, 1)),
			MinPct:    0.1,
			Min:       1,
			Max:       60_000_000,
			Precision: 2,
			Writer:    cfg.Report,
		}),
	}
	if opt, ok := aeopts.Find(aeopts.TypeClock, opts); ok {
		if clock, ok := opt.Value().(asyncevent.Clock); ok && clock != nil {
			c.clock = clock
		}
	}
	c.lastActivity = c.clock.Now()

	c.TCPClient = asyncevent.NewTCPClient(c, opts...)
	if err := c.Initialize(cfg.Addr, cfg.ConnectTimeout); err != nil {
		c.release()
		_ = c.TCPClient.Close()
		return nil, err
	}
	return c, nil
}

// Greeting is the first line sent by the server.
func (c *Client) Greeting() string {
	return c.greeting
}

// Echoed is the number of pings echoed back so far.
func (c *Client) Echoed() int {
	return c.echoed
}

func (c *Client) Done() bool {
	return c.echoed >= c.cfg.Pings
}

func (c *Client) Readable() bool {
	return true
}

func (c *Client) Writable() bool {
	if c.out == nil {
		return false
	}
	if c.out.Len() > 0 {
		return true
	}
	// the next ping goes out once the greeting and the previous echo arrived
	return c.greeting != "" && !c.waiting && c.sent < c.cfg.Pings
}

func (c *Client) Timeout() time.Time {
	return c.lastActivity.Add(c.cfg.Idle)
}

func (c *Client) HandleRead(r *asyncevent.Reactor) error {
	c.in.B = growTo(c.in.B, readSize)
	n, err := c.Read(c.in.B[len(c.in.B) : len(c.in.B)+readSize])
	if errors.Is(err, aeerrors.ErrWouldBlock) {
		return nil
	}
	if err != nil {
		c.Logger().Infof("connection closed by remote node: %v", err)
		c.Self().HandleClose(r)
		return nil
	}
	c.in.B = c.in.B[:len(c.in.B)+n]
	c.lastActivity = c.clock.Now()

	xs, err := lines(c.in)
	for _, line := range xs {
		if perr := c.onLine(line); perr != nil {
			return perr
		}
	}
	return err
}

func (c *Client) onLine(line string) error {
	if c.greeting == "" {
		if !IsGreeting(line) {
			return fmt.Errorf("unexpected greeting %q", line)
		}
		c.greeting = line
		c.Logger().Infof("greeted: %s", line)
		return nil
	}

	seq, sent, err := parsePing(line)
	if err != nil {
		return err
	}
	if seq != c.sent {
		return fmt.Errorf("echo of ping %d while waiting for %d", seq, c.sent)
	}
	c.echoed++
	c.waiting = false
	c.rtt.Add(c.clock.Now().Sub(sent).Microseconds())
	return nil
}

func (c *Client) HandleWrite(_ *asyncevent.Reactor) error {
	if c.out.Len() == 0 {
		if !c.Writable() {
			return nil
		}
		c.sent++
		c.waiting = true
		_, _ = c.out.WriteString(pingLine(c.sent, c.clock.Now()))
	}

	n, err := c.Write(c.out.B)
	if errors.Is(err, aeerrors.ErrWouldBlock) {
		return nil
	}
	if err != nil {
		return err
	}
	consume(c.out, n)
	c.lastActivity = c.clock.Now()
	return nil
}

func (c *Client) HandleTimeout(r *asyncevent.Reactor) error {
	switch {
	case !c.Connected():
		c.Logger().Noticef("connection attempt timed out, closing socket")
	case c.Done():
		c.Logger().Infof("all %d pings echoed, idle for %s, closing", c.echoed, c.cfg.Idle)
	default:
		c.Logger().Noticef("server silent for %s, %d of %d pings echoed, closing", c.cfg.Idle, c.echoed, c.cfg.Pings)
	}
	c.Self().HandleClose(r)
	return nil
}

func (c *Client) Close() error {
	c.rtt.Flush()
	c.release()
	return c.TCPClient.Close()
}

func (c *Client) release() {
	if c.in != nil {
		bytebufferpool.Put(c.in)
		c.in = nil
	}
	if c.out != nil {
		bytebufferpool.Put(c.out)
		c.out = nil
	}
}
