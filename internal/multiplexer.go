package internal

import (
	"errors"
	"fmt"

	"github.com/talostrading/asyncevent/aeopts"
)

var errUnavailable = errors.New("backend not available on this platform")

// NewMultiplexer creates the backend identified by api. The api is a hint:
// if the backend does not exist on the running OS, the next one in the order
// epoll, kqueue, poll, select is used instead. The backend actually created is
// returned alongside the multiplexer.
func NewMultiplexer(api aeopts.API) (Multiplexer, aeopts.API, error) {
	for _, candidate := range []aeopts.API{
		aeopts.APIEpoll,
		aeopts.APIKqueue,
		aeopts.APIPoll,
		aeopts.APISelect,
	} {
		if candidate < api {
			continue
		}

		m, err := newBackend(candidate)
		if errors.Is(err, errUnavailable) {
			continue
		}
		if err != nil {
			return nil, candidate, err
		}
		return m, candidate, nil
	}
	return nil, api, fmt.Errorf("api %s is not supported", api)
}

func newBackend(api aeopts.API) (Multiplexer, error) {
	switch api {
	case aeopts.APIEpoll:
		return newEpoll()
	case aeopts.APIKqueue:
		return newKqueue()
	case aeopts.APIPoll:
		return NewPoll()
	case aeopts.APISelect:
		return newSelect()
	default:
		return nil, errUnavailable
	}
}
