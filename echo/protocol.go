// Package echo is a line based protocol built on the asyncevent TCP
// dispatchers. The server greets every session, then echoes back each line it
// receives. The ping client measures the round trip time of its lines.
package echo

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"
)

const (
	// MaxLineSize bounds the unterminated data buffered for a peer.
	MaxLineSize = 4096

	readSize = 4096
)

var ErrLineTooLong = errors.New("line too long")

// lines splits the complete lines buffered in b, without their terminator,
// and keeps the trailing partial line in b.
func lines(b *bytebufferpool.ByteBuffer) ([]string, error) {
	var xs []string
	for {
		i := bytes.IndexByte(b.B, '\n')
		if i < 0 {
			break
		}
		xs = append(xs, strings.TrimRight(string(b.B[:i]), "\r"))
		b.B = b.B[:copy(b.B, b.B[i+1:])]
	}
	if len(b.B) > MaxLineSize {
		return xs, ErrLineTooLong
	}
	return xs, nil
}

// consume drops the first n bytes of b.
func consume(b *bytebufferpool.ByteBuffer, n int) {
	b.B = b.B[:copy(b.B, b.B[n:])]
}

func greeting(peer, local, id string) string {
	return fmt.Sprintf("hello client %s (server %s) session %s\n", peer, local, id)
}

// IsGreeting reports whether line is the first line sent by a server.
func IsGreeting(line string) bool {
	return strings.HasPrefix(line, "hello client ")
}

func pingLine(seq int, sent time.Time) string {
	return fmt.Sprintf("ping %d %d\n", seq, sent.UnixNano())
}

// parsePing parses a line written by pingLine.
func parsePing(line string) (seq int, sent time.Time, err error) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "ping" {
		return 0, time.Time{}, fmt.Errorf("invalid ping %q", line)
	}
	seq, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid ping sequence %q", line)
	}
	nanos, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid ping timestamp %q", line)
	}
	return seq, time.Unix(0, nanos), nil
}
