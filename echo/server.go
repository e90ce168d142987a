package echo

import (
	"net"
	"time"

	"github.com/talostrading/asyncevent"
	"github.com/talostrading/asyncevent/aeopts"
	"golang.org/x/sys/unix"
)

type ServerConfig struct {
	// Addr is the "host:port" to listen on.
	Addr    string
	Backlog int

	// SessionIdle closes sessions without any traffic for that long.
	SessionIdle time.Duration

	// Every ReportInterval the server logs how many connections it accepted
	// since the last report. After MaxIdleReports consecutive reports without
	// any connection the server closes. Zero means never.
	ReportInterval time.Duration
	MaxIdleReports int
}

func (c *ServerConfig) setDefaults() {
	if c.Backlog <= 0 {
		c.Backlog = 128
	}
	if c.SessionIdle <= 0 {
		c.SessionIdle = 5 * time.Second
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = 3 * time.Second
	}
}

// Server accepts connections and serves each one with a Session.
type Server struct {
	*asyncevent.TCPServer

	cfg   ServerConfig
	opts  []aeopts.Option
	clock asyncevent.Clock

	sessions map[*Session]struct{}

	total       int
	recent      int
	idleReports int
	nextReport  time.Time
}

// NewServer creates a server listening on cfg.Addr. The options are passed to
// the listening socket and to every session; WithClock drives the idle and
// report timeouts.
func NewServer(cfg ServerConfig, opts ...aeopts.Option) (*Server, error) {
	cfg.setDefaults()

	s := &Server{
		cfg:      cfg,
		opts:     opts,
		clock:    asyncevent.SystemClock,
		sessions: make(map[*Session]struct{}),
	}
	if opt, ok := aeopts.Find(aeopts.TypeClock, opts); ok {
		if c, ok := opt.Value().(asyncevent.Clock); ok && c != nil {
			s.clock = c
		}
	}

	serverOpts := append(append([]aeopts.Option{}, opts...), aeopts.Backlog(cfg.Backlog))
	s.TCPServer = asyncevent.NewTCPServer(s, serverOpts...)
	if err := s.Initialize(cfg.Addr); err != nil {
		_ = s.TCPServer.Close()
		return nil, err
	}
	s.nextReport = s.clock.Now().Add(cfg.ReportInterval)
	return s, nil
}

// PrepareServingClient registers a Session for the accepted connection.
func (s *Server) PrepareServingClient(r *asyncevent.Reactor, fd int, peer net.Addr) error {
	s.total++
	s.recent++

	session, err := newSession(s, fd)
	if err != nil {
		s.Logger().Warningf("could not serve fd %d, peer %s: %v", fd, peer, err)
		_ = unix.Close(fd)
		return nil
	}
	if _, err := r.Register(session); err != nil {
		_ = session.Close()
		return err
	}
	s.sessions[session] = struct{}{}

	s.Logger().Infof("session %s, serving peer %s on fd %d", session.ID, peer, fd)
	return nil
}

func (s *Server) forget(session *Session) {
	delete(s.sessions, session)
}

func (s *Server) Timeout() time.Time {
	return s.nextReport
}

// HandleTimeout reports the recent connections and closes the server after
// too many idle reports.
func (s *Server) HandleTimeout(r *asyncevent.Reactor) error {
	s.nextReport = s.clock.Now().Add(s.cfg.ReportInterval)

	if s.recent == 0 {
		s.idleReports++
	} else {
		s.Logger().Infof("number of recent connections %d", s.recent)
		s.recent = 0
		s.idleReports = 0
	}

	if s.cfg.MaxIdleReports > 0 && s.idleReports >= s.cfg.MaxIdleReports {
		s.Logger().Infof("closing server socket, %d connections in total", s.total)
		s.Self().HandleClose(r)
	}
	return nil
}

// Shutdown closes the server and all of its sessions.
func (s *Server) Shutdown(r *asyncevent.Reactor) {
	for session := range s.sessions {
		session.HandleClose(r)
	}
	if !s.Closed() {
		s.HandleClose(r)
	}
}

// Total is the number of connections accepted so far.
func (s *Server) Total() int {
	return s.total
}

func (s *Server) Sessions() int {
	return len(s.sessions)
}
