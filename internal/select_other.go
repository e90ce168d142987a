//go:build netbsd || freebsd || openbsd || dragonfly

package internal

func newSelect() (Multiplexer, error) {
	return nil, errUnavailable
}
