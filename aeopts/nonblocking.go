package aeopts

type nonblocking struct {
	v bool
}

// Nonblocking sets O_NONBLOCK when applied to a descriptor. Dispatcher
// sockets are always non-blocking: they accept Nonblocking(true) and fail to
// initialize with Nonblocking(false).
func Nonblocking(v bool) Option {
	return &nonblocking{
		v: v,
	}
}

func (o *nonblocking) Type() OptionType {
	return TypeNonblocking
}

func (o *nonblocking) Value() interface{} {
	return o.v
}
