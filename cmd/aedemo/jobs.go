package main

import (
	"time"

	"github.com/talostrading/asyncevent"
)

// countedJob fires a fixed number of times at a fixed interval.
type countedJob struct {
	log      asyncevent.Logger
	name     string
	count    int
	max      int
	interval time.Duration
}

func newCountedJob(log asyncevent.Logger, name string, max int, interval time.Duration) *countedJob {
	return &countedJob{
		log:      log,
		name:     name,
		max:      max,
		interval: interval,
	}
}

func (j *countedJob) Schedule() time.Time {
	if j.count >= j.max {
		return time.Time{}
	}
	j.count++
	return time.Now().Add(j.interval)
}

func (j *countedJob) HandleJob(_ *asyncevent.Reactor) error {
	j.log.Infof("%s %d / %d finished, interval %s", j.name, j.count, j.max, j.interval)
	return nil
}

// newInspection logs the state of the reactor a few times.
func newInspection(r *asyncevent.Reactor, log asyncevent.Logger, max int, interval time.Duration) asyncevent.ScheduledJob {
	n := 0
	return asyncevent.NewJobFunc(r.Clock(), interval, func(r *asyncevent.Reactor) (bool, error) {
		n++
		log.Infof("inspection %d / %d: %s", n, max, r)
		return n < max, nil
	})
}
