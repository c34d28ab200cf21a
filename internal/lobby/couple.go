package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/PrinceLee1/lovey-dovey/internal/api"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
	"github.com/PrinceLee1/lovey-dovey/internal/realtime"
)

type CoupleAPI interface {
	CoupleSession(ctx context.Context, code string) (domain.Session, error)
	SessionAction(ctx context.Context, code, typ string, payload any) error
}

type CoupleOptions struct {
	Code     string
	Me       domain.Member
	API      CoupleAPI
	Channels Joiner
	Sched    eventloop.Scheduler
	OnChange func()
	Timeout  time.Duration
}

// Couple mirrors a two-person session whose turn is owned by the server.
type Couple struct {
	opts CoupleOptions
	ctx  context.Context
	stop context.CancelFunc
	log  zerolog.Logger

	session *domain.Session
	roster  Roster
	stale   bool
	notice  banner

	epoch   int
	handle  *realtime.Handle
	joining bool
	closed  bool
}

func NewCouple(ctx context.Context, opts CoupleOptions) *Couple {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	ctx, stop := context.WithCancel(ctx)
	return &Couple{
		opts:  opts,
		ctx:   ctx,
		stop:  stop,
		log:   log.With().Str("code", opts.Code).Logger(),
		stale: true,
	}
}

func (c *Couple) Session() (domain.Session, bool) {
	if c.session == nil {
		return domain.Session{}, false
	}
	return *c.session, true
}

func (c *Couple) Members() []domain.Member { return c.roster.Members() }
func (c *Couple) PresenceStale() bool      { return c.stale }
func (c *Couple) Notice() string           { return c.notice.text }

// Turn gates on the session's turnUserId as it stands when asked.
func (c *Couple) Turn() domain.TurnSource {
	return domain.TurnFunc(func(actor int64) bool {
		return domain.SessionTurn{Session: c.session}.CanAct(actor)
	})
}

func (c *Couple) MyTurn() bool { return c.Turn().CanAct(c.opts.Me.ID) }

func (c *Couple) offLoop(reload bool, work func(ctx context.Context) error, done func(error)) {
	epoch := c.epoch
	ctx := c.ctx
	c.opts.Sched.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
		err := work(ctx)
		c.opts.Sched.Post(func() {
			if c.closed || (reload && epoch != c.epoch) {
				return
			}
			done(err)
		})
	})
}

// Load fetches the session and joins its presence channel.
func (c *Couple) Load(cb func(error)) {
	if c.closed {
		call(cb, ErrClosed)
		return
	}
	c.epoch++
	var s domain.Session
	code := c.opts.Code
	c.offLoop(true, func(ctx context.Context) (err error) {
		s, err = c.opts.API.CoupleSession(ctx, code)
		return err
	}, func(err error) {
		if err != nil {
			c.log.Warn().Err(err).Msg("loading session failed")
			c.notice.set(api.Message(err))
			c.changed()
			call(cb, fmt.Errorf("load session %s: %w", code, err))
			return
		}
		c.apply(s.Patch())
		c.log.Info().Str("kind", string(s.Kind)).Str("status", string(s.Status)).Msg("session loaded")
		c.join()
		c.changed()
		call(cb, nil)
	})
}

func (c *Couple) join() {
	if c.handle != nil || c.joining || c.opts.Channels == nil {
		return
	}
	c.joining = true
	channel := realtime.CoupleChannel(c.opts.Code)
	ctx := c.ctx
	c.opts.Sched.Go(func() {
		h, err := c.opts.Channels.Join(ctx, channel, c.onEvent)
		c.opts.Sched.Post(func() {
			c.joining = false
			if err != nil {
				c.log.Warn().Err(err).Str("channel", channel).Msg("joining channel failed")
				c.notice.set(api.Message(err))
				c.changed()
				return
			}
			if c.closed {
				h.Leave()
				return
			}
			c.handle = h
		})
	})
}

func (c *Couple) apply(p domain.SessionPatch) {
	var cur domain.Session
	if c.session != nil {
		cur = *c.session
	}
	next, err := cur.Merge(p)
	if err != nil {
		c.log.Debug().Err(err).Msg("ignoring status regression")
	}
	if c.session != nil && next.Status != cur.Status {
		c.log.Info().Str("from", string(cur.Status)).Str("to", string(next.Status)).Msg("session status")
	}
	c.session = &next
}

func (c *Couple) onEvent(ev realtime.Event) {
	if c.closed {
		return
	}
	switch e := ev.(type) {
	case realtime.PresenceSnapshot:
		c.roster.Reset(e.Members)
		c.stale = false
	case realtime.MemberJoined:
		c.roster.Join(e.Member)
	case realtime.MemberLeft:
		c.roster.Leave(e.Member)
	case realtime.SessionPatched:
		c.apply(e.Patch)
	case realtime.ConnectionLost:
		c.log.Info().Err(e.Err).Msg("presence is stale")
		c.stale = true
	case realtime.Reconnected:
		c.Load(nil)
	default:
		return
	}
	c.changed()
}

// Act sends a session action. pick and skip need the turn; finish may be
// sent by either partner. The result arrives as a session.updated event.
func (c *Couple) Act(typ string, payload any, cb func(error)) {
	if c.closed {
		call(cb, ErrClosed)
		return
	}
	if typ == "pick" || typ == "skip" {
		if !c.MyTurn() {
			c.notice.warn(c.opts.Sched, domain.ErrNotYourTurn.Error(), c.changed)
			c.changed()
			call(cb, domain.ErrNotYourTurn)
			return
		}
	}
	code := c.opts.Code
	c.offLoop(false, func(ctx context.Context) error {
		return c.opts.API.SessionAction(ctx, code, typ, payload)
	}, func(err error) {
		if err != nil {
			c.notice.set(api.Message(err))
			c.log.Warn().Err(err).Str("action", typ).Msg("session action failed")
			c.changed()
			call(cb, err)
			return
		}
		if c.notice.clear() {
			c.changed()
		}
		call(cb, nil)
	})
}

func (c *Couple) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.epoch++
	c.notice.stop()
	c.stop()
	if c.handle != nil {
		c.handle.Leave()
		c.handle = nil
	}
}

func (c *Couple) changed() {
	if c.opts.OnChange != nil && !c.closed {
		c.opts.OnChange()
	}
}
