//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package internal

func NewWaker() (Waker, error) {
	p, err := NewPipe()
	if err != nil {
		return nil, err
	}
	if err := p.SetReadNonblock(); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.SetWriteNonblock(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}
