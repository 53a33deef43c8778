package chip8

import (
	"sync/atomic"
	"time"
)

// Timer is an 8-bit countdown timer that decays at 60 ticks per second.
// It is not ticked by a goroutine: Set captures the current monotonic
// time and Value derives the remaining count from the elapsed time, so
// accuracy depends only on the clock, never on scheduling.
//
// The snapshot is held behind an atomic pointer so Value may be called
// from any goroutine (the audio collaborator polls the sound timer)
// without coordinating with the execution context that calls Set.
type Timer struct {
	state atomic.Pointer[timerState]
	now   func() time.Time // test hook; nil means time.Now
}

type timerState struct {
	value byte
	since time.Time
}

func (t *Timer) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// Set stores v and restarts the countdown from now.
func (t *Timer) Set(v byte) {
	t.state.Store(&timerState{value: v, since: t.clock()})
}

// Value returns the current count. Once it reaches zero it stays zero
// until the next Set.
func (t *Timer) Value() byte {
	s := t.state.Load()
	if s == nil || s.value == 0 {
		return 0
	}
	// Split the elapsed time into whole seconds (exact) and a
	// sub-second remainder at 16667us per tick.
	us := t.clock().Sub(s.since).Microseconds()
	ticks := 60*(us/1e6) + us%1e6/16667
	if ticks >= int64(s.value) {
		return 0
	}
	return s.value - byte(ticks)
}
