package aeopts

// API identifies the readiness notification backend of a reactor.
type API uint8

const (
	APIDefault API = iota
	APIEpoll
	APIKqueue
	APIPoll
	APISelect
)

func (a API) String() string {
	switch a {
	case APIDefault:
		return "default"
	case APIEpoll:
		return "epoll"
	case APIKqueue:
		return "kqueue"
	case APIPoll:
		return "poll"
	case APISelect:
		return "select"
	default:
		return "api_unknown"
	}
}

// ParseAPI is the inverse of API.String.
func ParseAPI(s string) (API, bool) {
	for a := APIDefault; a <= APISelect; a++ {
		if a.String() == s {
			return a, true
		}
	}
	return APIDefault, false
}

type optionAPI struct {
	v API
}

// EventAPI is a hint: when the backend is not available on the running OS the
// reactor falls back to the next portable one.
func EventAPI(v API) Option {
	return &optionAPI{
		v: v,
	}
}

func (o *optionAPI) Type() OptionType {
	return TypeAPI
}

func (o *optionAPI) Value() interface{} {
	return o.v
}
