package chip8

import (
	"testing"
	"time"
)

// fakeClock lets tests drive the timer's view of time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTimer() (*Timer, *fakeClock) {
	c := &fakeClock{t: time.Unix(0, 0)}
	return &Timer{now: c.now}, c
}

func TestTimerZeroValue(t *testing.T) {
	var tm Timer
	if g := tm.Value(); g != 0 {
		t.Errorf("unset timer Value = %d, want 0", g)
	}
}

func TestTimerCountdown(t *testing.T) {
	tm, clock := newTestTimer()
	tm.Set(120)
	for _, c := range []struct {
		elapsed time.Duration
		want    byte
	}{
		{0, 120},
		{16 * time.Millisecond, 120}, // less than one tick
		{16667 * time.Microsecond, 119},
		{500 * time.Millisecond, 91},
		{time.Second, 60},
		{1999 * time.Millisecond, 1},
		{2 * time.Second, 0},
		{time.Hour, 0}, // frozen at zero
	} {
		clock.t = time.Unix(0, 0).Add(c.elapsed)
		if g := tm.Value(); g != c.want {
			t.Errorf("after %v: Value = %d, want %d", c.elapsed, g, c.want)
		}
	}
}

func TestTimerMonotonic(t *testing.T) {
	tm, clock := newTestTimer()
	tm.Set(60)
	prev := tm.Value()
	for i := 0; i < 200; i++ {
		clock.advance(7 * time.Millisecond)
		v := tm.Value()
		if v > prev {
			t.Fatalf("Value increased from %d to %d", prev, v)
		}
		prev = v
	}
	if prev != 0 {
		t.Errorf("Value = %d after 1.4s, want 0", prev)
	}
}

func TestTimerReachesZeroOnTime(t *testing.T) {
	tm, clock := newTestTimer()
	tm.Set(10)
	// 10 ticks at 16667us each.
	clock.advance(10 * 16667 * time.Microsecond)
	if g := tm.Value(); g != 0 {
		t.Errorf("Value = %d, want 0", g)
	}
}

func TestTimerReset(t *testing.T) {
	tm, clock := newTestTimer()
	tm.Set(5)
	clock.advance(time.Second)
	if g := tm.Value(); g != 0 {
		t.Fatalf("Value = %d, want 0", g)
	}
	tm.Set(30)
	if g := tm.Value(); g != 30 {
		t.Errorf("Value after reset = %d, want 30", g)
	}
}
