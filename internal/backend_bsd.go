//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package internal

func newEpoll() (Multiplexer, error) {
	return nil, errUnavailable
}

func newKqueue() (Multiplexer, error) {
	return NewKqueue()
}
