package game

import (
	"testing"
	"time"

	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
)

func TestCountdownTicksOncePerSecond(t *testing.T) {
	m := eventloop.NewManual(time.Unix(0, 0))
	c := NewCountdown(m, time.Second)
	var ticks []int
	zero := 0
	c.OnTick = func(n int) { ticks = append(ticks, n) }
	c.OnZero = func() { zero++ }

	c.Set(3)
	c.Start()
	c.Start()
	m.Advance(2500 * time.Millisecond)
	if c.Remaining() != 1 {
		t.Fatalf("expected 1 left, got %d", c.Remaining())
	}
	m.Advance(10 * time.Second)
	if zero != 1 {
		t.Fatalf("OnZero fired %d times", zero)
	}
	if len(ticks) != 3 || ticks[2] != 0 {
		t.Fatalf("unexpected ticks %v", ticks)
	}
	if c.Running() {
		t.Fatal("clock should stop at zero")
	}
}

func TestCountdownPauseKeepsPartialTick(t *testing.T) {
	m := eventloop.NewManual(time.Unix(0, 0))
	c := NewCountdown(m, time.Second)
	c.Set(10)
	c.Start()

	m.Advance(400 * time.Millisecond)
	c.Pause()
	m.Advance(time.Minute)
	if c.Remaining() != 10 {
		t.Fatalf("clock moved while paused: %d", c.Remaining())
	}

	c.Start()
	m.Advance(599 * time.Millisecond)
	if c.Remaining() != 10 {
		t.Fatalf("tick fired early: %d", c.Remaining())
	}
	m.Advance(time.Millisecond)
	if c.Remaining() != 9 {
		t.Fatalf("partial tick lost: %d", c.Remaining())
	}
	m.Advance(time.Second)
	if c.Remaining() != 8 {
		t.Fatalf("expected a full tick after the partial one, got %d", c.Remaining())
	}
}

func TestCountdownStopDropsQueuedFire(t *testing.T) {
	m := eventloop.NewManual(time.Unix(0, 0))
	c := NewCountdown(m, time.Second)
	c.Set(5)
	c.Start()
	c.Stop()
	m.Advance(5 * time.Second)
	if c.Remaining() != 5 {
		t.Fatalf("stopped clock ticked: %d", c.Remaining())
	}
	if m.Pending() != 0 {
		t.Fatalf("timer left armed")
	}
}

func TestLatchFiresOnce(t *testing.T) {
	var l Latch
	if !l.Fire() || l.Fire() || !l.Fired() {
		t.Fatal("latch must let exactly one caller through")
	}
	l.Reset()
	if !l.Fire() {
		t.Fatal("reset latch should fire again")
	}
}
