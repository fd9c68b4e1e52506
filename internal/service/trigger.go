package service

import (
	"time"

	"github.com/robfig/cron/v3"
)

// trigger is the recurring-timer resource behind a scheduled instance.
// It is exclusively owned by one Instance and released on stop.
type trigger struct {
	stop chan struct{}
	done chan struct{}
}

// startTrigger launches the timer loop. fire is invoked on every schedule
// boundary and must not block (the instance spawns the actual execution).
func startTrigger(sched cron.Schedule, fire func()) *trigger {
	t := &trigger{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.loop(sched, fire)
	return t
}

func (t *trigger) loop(sched cron.Schedule, fire func()) {
	defer close(t.done)
	for {
		timer := time.NewTimer(time.Until(sched.Next(time.Now())))
		select {
		case <-timer.C:
			fire()
		case <-t.stop:
			timer.Stop()
			return
		}
	}
}

// Stop cancels the trigger and waits for the timer loop to exit.
// No firing occurs after Stop returns. An execution already in flight is
// not awaited; it keeps running to completion.
func (t *trigger) Stop() {
	close(t.stop)
	<-t.done
}

// parseSchedule parses a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 30s".
func parseSchedule(expr string) (cron.Schedule, error) {
	return cron.ParseStandard(expr)
}
