package aeopts

type reuseAddr struct {
	v bool
}

// ReuseAddr sets SO_REUSEADDR. It only applies when the bound port is not
// zero.
func ReuseAddr(v bool) Option {
	return &reuseAddr{
		v: v,
	}
}

func (o *reuseAddr) Type() OptionType {
	return TypeReuseAddr
}

func (o *reuseAddr) Value() interface{} {
	return o.v
}
