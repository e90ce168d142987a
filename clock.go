package asyncevent

import (
	"time"

	"github.com/talostrading/asyncevent/aeopts"
)

// Clock is the time source of a reactor. Deadlines and schedules are absolute
// instants read from it.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// SystemClock reads the wall clock.
var SystemClock Clock = realClock{}

type optionClock struct {
	v Clock
}

func WithClock(c Clock) aeopts.Option {
	return &optionClock{v: c}
}

func (o *optionClock) Type() aeopts.OptionType {
	return aeopts.TypeClock
}

func (o *optionClock) Value() interface{} {
	return o.v
}

func clockFrom(opts []aeopts.Option) Clock {
	if opt, ok := aeopts.Find(aeopts.TypeClock, opts); ok {
		if c, ok := opt.Value().(Clock); ok && c != nil {
			return c
		}
	}
	return SystemClock
}
