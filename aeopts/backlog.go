package aeopts

type optionBacklog struct {
	n int
}

// Backlog is the maximum length of the queue of pending connections of a
// listening socket.
func Backlog(n int) Option {
	return &optionBacklog{
		n: n,
	}
}

func (o *optionBacklog) Type() OptionType {
	return TypeBacklog
}

func (o *optionBacklog) Value() interface{} {
	return o.n
}
