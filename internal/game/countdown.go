package game

import (
	"time"

	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
)

// Countdown counts whole ticks down to zero on the event loop. Pausing keeps
// the part of the current tick that already elapsed, so pause/resume cycles
// neither lose nor gain time. Every (re)arm bumps a generation so a fire
// that was already queued when the clock stopped is ignored.
type Countdown struct {
	sched eventloop.Scheduler
	tick  time.Duration

	remaining int
	running   bool

	armedAt  time.Time
	armedFor time.Duration
	leftover time.Duration
	paused   bool

	timer eventloop.Timer
	gen   int

	OnTick func(remaining int)
	OnZero func()
}

func NewCountdown(sched eventloop.Scheduler, tick time.Duration) *Countdown {
	if tick <= 0 {
		tick = time.Second
	}
	return &Countdown{sched: sched, tick: tick}
}

// Set stops the clock and loads n ticks.
func (c *Countdown) Set(n int) {
	c.Stop()
	c.remaining = n
}

func (c *Countdown) Remaining() int { return c.remaining }
func (c *Countdown) Running() bool  { return c.running }

// Start runs the clock, resuming a partial tick if it was paused.
func (c *Countdown) Start() {
	if c.running || c.remaining <= 0 {
		return
	}
	c.running = true
	d := c.tick
	if c.paused {
		d = c.leftover
	}
	c.paused = false
	c.leftover = 0
	c.arm(d)
}

func (c *Countdown) Pause() {
	if !c.running {
		return
	}
	c.disarm()
	c.running = false
	left := c.armedFor - c.sched.Now().Sub(c.armedAt)
	if left < 0 {
		left = 0
	}
	c.leftover = left
	c.paused = true
}

// Stop halts the clock and forgets any partial tick.
func (c *Countdown) Stop() {
	c.disarm()
	c.running = false
	c.paused = false
	c.leftover = 0
}

func (c *Countdown) arm(d time.Duration) {
	c.gen++
	gen := c.gen
	c.armedAt = c.sched.Now()
	c.armedFor = d
	c.timer = c.sched.AfterFunc(d, func() { c.fire(gen) })
}

func (c *Countdown) disarm() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Countdown) fire(gen int) {
	if gen != c.gen || !c.running {
		return
	}
	c.timer = nil
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.running = false
		if c.OnTick != nil {
			c.OnTick(0)
		}
		if c.OnZero != nil {
			c.OnZero()
		}
		return
	}
	c.arm(c.tick)
	if c.OnTick != nil {
		c.OnTick(c.remaining)
	}
}

// Latch lets exactly one caller through until it is reset.
type Latch struct {
	fired bool
}

func (l *Latch) Fire() bool {
	if l.fired {
		return false
	}
	l.fired = true
	return true
}

func (l *Latch) Fired() bool { return l.fired }
func (l *Latch) Reset()      { l.fired = false }
