//go:build linux

package internal

func newEpoll() (Multiplexer, error) {
	return NewEpoll()
}

func newKqueue() (Multiplexer, error) {
	return nil, errUnavailable
}
