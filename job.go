package asyncevent

import "time"

// ScheduledJob is purely time driven work. Schedule is queried when the job
// is added and right after every firing; a zero instant means the job is
// done and is dropped.
type ScheduledJob interface {
	Schedule() time.Time
	HandleJob(r *Reactor) error
}

// JobFunc adapts a function to ScheduledJob. The job fires every Interval
// until the function returns false or an error.
type JobFunc struct {
	Interval time.Duration
	Fn       func(r *Reactor) (bool, error)

	clock Clock
	next  time.Time
	done  bool
}

var _ ScheduledJob = &JobFunc{}

// NewJobFunc creates a job first due interval from now, as read from clock.
// A nil clock reads the wall clock.
func NewJobFunc(clock Clock, interval time.Duration, fn func(r *Reactor) (bool, error)) *JobFunc {
	if clock == nil {
		clock = SystemClock
	}
	return &JobFunc{
		Interval: interval,
		Fn:       fn,
		clock:    clock,
		next:     clock.Now().Add(interval),
	}
}

func (j *JobFunc) Schedule() time.Time {
	if j.done {
		return time.Time{}
	}
	return j.next
}

func (j *JobFunc) HandleJob(r *Reactor) error {
	again, err := j.Fn(r)
	if err != nil || !again {
		j.done = true
		return err
	}
	j.next = j.clock.Now().Add(j.Interval)
	return nil
}
