package pipeline

import "github.com/jonboulle/clockwork"

var clock = clockwork.NewRealClock()

// SetClock overrides the clock used for run timestamps. Pass nil to restore the
// real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
