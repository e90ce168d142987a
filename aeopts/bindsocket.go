package aeopts

type optionBindSocket struct {
	addr string
}

// BindSocket covers the case in which the user wants to bind a client socket
// to a specific local address ("host:port") before connecting.
func BindSocket(addr string) Option {
	return &optionBindSocket{
		addr: addr,
	}
}

func (o *optionBindSocket) Type() OptionType {
	return TypeBindSocket
}

func (o *optionBindSocket) Value() interface{} {
	return o.addr
}
