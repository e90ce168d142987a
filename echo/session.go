package echo

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/talostrading/asyncevent"
	"github.com/talostrading/asyncevent/aeerrors"
	"github.com/valyala/bytebufferpool"
)

// Session serves one connection accepted by a Server.
type Session struct {
	*asyncevent.TCPClient

	ID uuid.UUID

	server *Server
	in     *bytebufferpool.ByteBuffer
	out    *bytebufferpool.ByteBuffer

	lastActivity time.Time
	echoed       int
}

func newSession(server *Server, fd int) (*Session, error) {
	s := &Session{
		ID:           uuid.New(),
		server:       server,
		in:           bytebufferpool.Get(),
		out:          bytebufferpool.Get(),
		lastActivity: server.clock.Now(),
	}
	s.TCPClient = asyncevent.NewTCPClient(s, server.opts...)
	if err := s.Wrap(fd); err != nil {
		s.release()
		return nil, err
	}

	local, peer := "not_available", "not_available"
	if s.LocalAddr() != nil {
		local = s.LocalAddr().String()
	}
	if s.RemoteAddr() != nil {
		peer = s.RemoteAddr().String()
	}
	_, _ = s.out.WriteString(greeting(peer, local, s.ID.String()))
	return s, nil
}

func (s *Session) Readable() bool {
	return true
}

func (s *Session) Writable() bool {
	return s.out != nil && s.out.Len() > 0
}

func (s *Session) Timeout() time.Time {
	return s.lastActivity.Add(s.server.cfg.SessionIdle)
}

// Echoed is the number of lines sent back so far.
func (s *Session) Echoed() int {
	return s.echoed
}

func (s *Session) HandleRead(r *asyncevent.Reactor) error {
	s.in.B = growTo(s.in.B, readSize)
	n, err := s.Read(s.in.B[len(s.in.B) : len(s.in.B)+readSize])
	if errors.Is(err, aeerrors.ErrWouldBlock) {
		return nil
	}
	if err != nil {
		s.Logger().Infof("session %s, connection closed by remote node: %v", s.ID, err)
		s.Self().HandleClose(r)
		return nil
	}
	s.in.B = s.in.B[:len(s.in.B)+n]
	s.lastActivity = s.server.clock.Now()

	xs, err := lines(s.in)
	for _, line := range xs {
		_, _ = s.out.WriteString(line)
		_ = s.out.WriteByte('\n')
		s.echoed++
	}
	return err
}

func (s *Session) HandleWrite(_ *asyncevent.Reactor) error {
	n, err := s.Write(s.out.B)
	if errors.Is(err, aeerrors.ErrWouldBlock) {
		return nil
	}
	if err != nil {
		return err
	}
	consume(s.out, n)
	s.lastActivity = s.server.clock.Now()
	s.Logger().Debugf("session %s, %d bytes sent, %d bytes remaining", s.ID, n, s.out.Len())
	return nil
}

func (s *Session) HandleTimeout(r *asyncevent.Reactor) error {
	s.Logger().Infof(
		"session %s, closing idle connection, no activity during last %s (%s)",
		s.ID, s.server.cfg.SessionIdle, s,
	)
	s.Self().HandleClose(r)
	return nil
}

func (s *Session) Close() error {
	s.server.forget(s)
	s.release()
	return s.TCPClient.Close()
}

func (s *Session) release() {
	if s.in != nil {
		bytebufferpool.Put(s.in)
		s.in = nil
	}
	if s.out != nil {
		bytebufferpool.Put(s.out)
		s.out = nil
	}
}

// growTo makes room for n more bytes after len(b).
func growTo(b []byte, n int) []byte {
	if cap(b)-len(b) >= n {
		return b
	}
	nb := make([]byte, len(b), len(b)+n)
	copy(nb, b)
	return nb
}
