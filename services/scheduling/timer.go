package scheduling

import (
	"sync"
	"time"
)

// reminderTimer drives the fire callback of one armed reminder. One-shot
// timers fire once at the scheduled instant; recurring timers fire at the
// scheduled instant and then every period, aligned to the first fire time.
// A scheduled instant in the past fires immediately; missed periods of a
// recurring timer are skipped, not replayed.
type reminderTimer struct {
	stopOnce sync.Once
	stop     chan struct{}
}

func newReminderTimer(fireAt time.Time, period time.Duration, recurring bool, fire func()) *reminderTimer {
	t := &reminderTimer{stop: make(chan struct{})}
	go t.run(fireAt, period, recurring, fire)
	return t
}

func (t *reminderTimer) run(fireAt time.Time, period time.Duration, recurring bool, fire func()) {
	next := fireAt
	for {
		d := time.Until(next)
		if d < 0 {
			d = 0
		}
		wait := time.NewTimer(d)
		select {
		case <-t.stop:
			wait.Stop()
			return
		case <-wait.C:
		}
		fire()
		if !recurring {
			return
		}
		for !next.After(time.Now()) {
			next = next.Add(period)
		}
	}
}

// Stop cancels the timer. After Stop returns no further fire is started; a
// fire already in flight is serialized against the scheduler's lock instead.
func (t *reminderTimer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}
