package game

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
)

const noticeTTL = 1200 * time.Millisecond

// machine is the round state shared by every mini-game: the phase, the
// finish latch, an optional countdown, short-lived notices and delayed
// steps that must die with the run that scheduled them.
type machine struct {
	env  Env
	kind domain.Kind
	log  zerolog.Logger

	phase Phase
	latch Latch
	clock *Countdown

	clockWasRunning bool
	pausedAt        time.Time
	pausedFor       time.Duration

	notice    string
	noticeGen int
	noticeT   eventloop.Timer
	err       string

	epoch    int
	timerSeq int
	timers   map[int]eventloop.Timer
	deferred []func()

	pools []contentPool

	result *domain.Result
	closed bool
}

// contentPool is the part of a prompt pool the machine reports on.
type contentPool interface {
	Err() error
	Fetching() bool
	Len() int
	Close()
}

func newMachine(env Env, kind domain.Kind) machine {
	return machine{
		env:    env,
		kind:   kind,
		log:    log.With().Str("kind", string(kind)).Logger(),
		phase:  PhaseIdle,
		timers: make(map[int]eventloop.Timer),
	}
}

func (m *machine) Kind() domain.Kind { return m.kind }
func (m *machine) Phase() Phase      { return m.phase }

// track lets the machine surface a pool's errors and close it with the game.
func (m *machine) track(p contentPool) {
	m.pools = append(m.pools, p)
}

// useClock attaches a countdown ticking once per second.
func (m *machine) useClock(onZero func()) *Countdown {
	c := NewCountdown(m.env.Sched, time.Second)
	c.OnTick = func(int) { m.changed() }
	c.OnZero = onZero
	m.clock = c
	return c
}

func (m *machine) setPhase(p Phase) {
	if m.phase == p {
		return
	}
	m.log.Debug().Str("from", string(m.phase)).Str("to", string(p)).Msg("phase")
	m.phase = p
}

// begin moves idle to running and reports whether it did.
func (m *machine) begin() bool {
	if m.closed || m.phase != PhaseIdle {
		return false
	}
	m.setPhase(PhaseRunning)
	return true
}

func (m *machine) Pause() {
	if m.phase != PhaseRunning {
		return
	}
	m.clockWasRunning = m.clock != nil && m.clock.Running()
	if m.clock != nil {
		m.clock.Pause()
	}
	m.pausedAt = m.env.Sched.Now()
	m.setPhase(PhasePaused)
	m.changed()
}

func (m *machine) Resume() {
	if m.phase != PhasePaused {
		return
	}
	m.pausedFor += m.env.Sched.Now().Sub(m.pausedAt)
	m.setPhase(PhaseRunning)
	if m.clockWasRunning {
		m.clock.Start()
	}
	m.clockWasRunning = false
	pending := m.deferred
	m.deferred = nil
	for _, fn := range pending {
		if m.phase != PhaseRunning {
			m.deferred = append(m.deferred, fn)
			continue
		}
		fn()
	}
	m.changed()
}

// guard is the common precondition of every in-play action.
func (m *machine) guard() error {
	switch {
	case m.closed:
		return ErrClosed
	case m.phase == PhaseFinished:
		return ErrFinished
	case m.phase != PhaseRunning:
		return ErrNotRunning
	}
	return nil
}

// after runs fn once d has passed, unless the run was restarted, finished
// or closed in the meantime. A step that comes due while paused waits for
// Resume.
func (m *machine) after(d time.Duration, fn func()) {
	epoch := m.epoch
	m.timerSeq++
	id := m.timerSeq
	m.timers[id] = m.env.Sched.AfterFunc(d, func() {
		delete(m.timers, id)
		if epoch != m.epoch || m.closed {
			return
		}
		if m.phase == PhasePaused {
			m.deferred = append(m.deferred, fn)
			return
		}
		fn()
		m.changed()
	})
}

func (m *machine) cancelPending() {
	m.epoch++
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.deferred = nil
}

// finish emits res once per run. It reports whether this call won.
func (m *machine) finish(res domain.Result) bool {
	if m.closed || !m.latch.Fire() {
		return false
	}
	if m.clock != nil {
		m.clock.Stop()
	}
	m.cancelPending()
	m.setPhase(PhaseFinished)
	r := res.Clamp()
	m.result = &r
	m.log.Info().Int("xp", r.XPEarned).Int("rounds", r.Rounds).Int("skipped", r.Skipped).Msg("game finished")
	if m.env.OnFinish != nil {
		m.env.OnFinish(r)
	}
	m.changed()
	return true
}

// reset clears the shared state back to idle.
func (m *machine) reset() {
	m.cancelPending()
	if m.clock != nil {
		m.clock.Stop()
	}
	m.latch.Reset()
	m.result = nil
	m.err = ""
	m.clearNotice()
	m.clockWasRunning = false
	m.pausedFor = 0
	m.setPhase(PhaseIdle)
}

func (m *machine) close() {
	if m.closed {
		return
	}
	m.cancelPending()
	if m.clock != nil {
		m.clock.Stop()
	}
	m.clearNotice()
	for _, p := range m.pools {
		p.Close()
	}
	m.closed = true
	m.log.Debug().Msg("game closed")
}

// warn shows msg until it is replaced or noticeTTL passes.
func (m *machine) warn(msg string) {
	m.clearNotice()
	m.notice = msg
	gen := m.noticeGen
	m.noticeT = m.env.Sched.AfterFunc(noticeTTL, func() {
		if gen != m.noticeGen {
			return
		}
		m.notice = ""
		m.noticeT = nil
		m.changed()
	})
	m.changed()
}

func (m *machine) clearNotice() {
	m.noticeGen++
	if m.noticeT != nil {
		m.noticeT.Stop()
		m.noticeT = nil
	}
	m.notice = ""
}

// reject turns a local validation failure into a notice and returns it.
func (m *machine) reject(err error) error {
	m.warn(err.Error())
	return err
}

// fetchFailed records a content error that stays until content arrives.
func (m *machine) fetchFailed(err error) {
	if err == nil {
		m.err = ""
		return
	}
	m.err = err.Error()
	m.changed()
}

// played is how long the game has been running, excluding pauses.
func (m *machine) played(since time.Time) time.Duration {
	now := m.env.Sched.Now()
	d := now.Sub(since) - m.pausedFor
	if m.phase == PhasePaused {
		d -= now.Sub(m.pausedAt)
	}
	if d < 0 {
		return 0
	}
	return d
}

func (m *machine) changed() {
	if m.env.OnChange != nil && !m.closed {
		m.env.OnChange()
	}
}

func (m *machine) snapshot(state any) Snapshot {
	s := Snapshot{
		Kind:   m.kind,
		Phase:  m.phase,
		Notice: m.notice,
		Error:  m.err,
		Result: m.result,
		State:  state,
	}
	if m.clock != nil {
		s.Remaining = m.clock.Remaining()
	}
	for _, p := range m.pools {
		if err := p.Err(); err != nil && s.Error == "" {
			s.Error = err.Error()
		}
		if p.Fetching() && p.Len() == 0 {
			s.Loading = true
		}
	}
	return s
}
