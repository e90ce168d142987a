package aeopts

import "fmt"

type OptionType uint8

type Option interface {
	Type() OptionType
	Value() interface{}
}

const (
	TypeNonblocking OptionType = iota
	TypeReusePort
	TypeReuseAddr
	TypeNoDelay
	TypeBindSocket
	TypeBacklog
	TypeAPI
	TypeStrictRegistration
	TypeLogger
	TypeClock
	TypeStats
	MaxOption
)

func (t OptionType) String() string {
	switch t {
	case TypeNonblocking:
		return "nonblocking"
	case TypeReusePort:
		return "reuse_port"
	case TypeReuseAddr:
		return "reuse_addr"
	case TypeNoDelay:
		return "no_delay"
	case TypeBindSocket:
		return "bind_socket"
	case TypeBacklog:
		return "backlog"
	case TypeAPI:
		return "api"
	case TypeStrictRegistration:
		return "strict_registration"
	case TypeLogger:
		return "logger"
	case TypeClock:
		return "clock"
	case TypeStats:
		return "stats"
	default:
		panic(fmt.Errorf("invalid option %d", t))
	}
}

// AddOption replaces the option of the same type in opts, or appends it.
func AddOption(add Option, opts []Option) []Option {
	for i, cur := range opts {
		if cur.Type() == add.Type() {
			opts[i] = add
			return opts
		}
	}
	opts = append(opts, add)
	return opts
}

func DelOption(del OptionType, opts []Option) []Option {
	for i := 0; i < len(opts); i++ {
		if opts[i].Type() == del {
			return append(opts[:i], opts[i+1:]...)
		}
	}
	return opts
}

// Find returns the last option of type t in opts.
func Find(t OptionType, opts []Option) (Option, bool) {
	for i := len(opts) - 1; i >= 0; i-- {
		if opts[i] != nil && opts[i].Type() == t {
			return opts[i], true
		}
	}
	return nil, false
}
