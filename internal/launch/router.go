// Package launch mounts the one game a client is playing, feeds it input
// and relays its result to the server.
package launch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
	"github.com/PrinceLee1/lovey-dovey/internal/api"
	"github.com/PrinceLee1/lovey-dovey/internal/bus"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
	"github.com/PrinceLee1/lovey-dovey/internal/game"
)

var (
	ErrUnsupportedKind = errors.New("unsupported game kind")
	ErrInvalidSettings = errors.New("invalid game settings")
	ErrNothingMounted  = errors.New("no game is open")
	ErrUnknownGame     = errors.New("no such game in the catalog")
)

const relayTimeout = 15 * time.Second

// ResultAPI is where finished games are reported.
type ResultAPI interface {
	EndGame(ctx context.Context, code string, sessionID int64, res domain.Result) error
	RecordHistory(ctx context.Context, e api.HistoryEntry) (api.HistoryReceipt, error)
}

type Options struct {
	Sched   eventloop.Scheduler
	Source  ai.Source
	Results ResultAPI
	Players [2]string
	// ExportFile, when set, gets every result appended.
	ExportFile string
	// Rand seeds every mounted game; nil means a clock seed.
	Rand     *rand.Rand
	OnChange func()
	// OnRelayed reports the outcome of posting a result.
	OnRelayed func(bus.OpenGame, domain.Result, error)
}

type mount struct {
	id      string
	open    bus.OpenGame
	entry   game.Entry
	game    game.Game
	started time.Time
}

// Router keeps at most one game mounted. It runs on the event loop.
type Router struct {
	opts    Options
	active  *mount
	lastErr error
	xp      *int
}

func NewRouter(opts Options) *Router {
	return &Router{opts: opts}
}

// Listen mounts every OpenGame published on topic. The mount happens on
// the loop after Publish returns.
func (r *Router) Listen(topic *bus.Topic[bus.OpenGame]) (unsubscribe func()) {
	return topic.Subscribe(func(o bus.OpenGame) {
		r.opts.Sched.Post(func() {
			if err := r.Open(o); err != nil {
				log.Warn().Err(err).Str("kind", string(o.Kind)).Msg("could not open game")
			}
		})
	})
}

// Open builds the game o names and replaces whatever was mounted. A game
// that cannot be built leaves the current mount alone.
func (r *Router) Open(o bus.OpenGame) error {
	kind, err := domain.ParseKind(string(o.Kind))
	if err != nil {
		return r.fail(fmt.Errorf("%w: %q", ErrUnsupportedKind, o.Kind))
	}
	entry, _ := game.Lookup(kind)

	m := &mount{id: uuid.NewString(), open: o, entry: entry}
	env := game.Env{
		Sched:    r.opts.Sched,
		Source:   r.opts.Source,
		Players:  r.opts.Players,
		Rand:     r.opts.Rand,
		OnFinish: func(res domain.Result) { r.finished(m, res) },
		OnChange: func() { r.changed(m) },
	}
	g, err := game.New(kind, env, o.Settings)
	switch {
	case errors.Is(err, game.ErrInvalidSettings):
		return r.fail(fmt.Errorf("%w: %w", ErrInvalidSettings, err))
	case errors.Is(err, domain.ErrUnknownKind):
		return r.fail(fmt.Errorf("%w: %w", ErrUnsupportedKind, err))
	case err != nil:
		return r.fail(err)
	}
	m.game = g
	m.started = r.opts.Sched.Now()

	r.unmount()
	r.active = m
	r.lastErr = nil
	log.Info().Str("mount", m.id).Str("kind", string(kind)).Str("code", o.Code).Int64("sessionId", o.SessionID).Msg("game mounted")
	r.notify()
	return nil
}

// OpenCatalog launches a catalog game by id or kind outside any lobby.
func (r *Router) OpenCatalog(idOrKind, code string) error {
	for _, e := range game.Catalog() {
		if e.ID == idOrKind || string(e.Kind) == idOrKind {
			return r.Open(bus.OpenGame{Kind: e.Kind, Code: code})
		}
	}
	return r.fail(fmt.Errorf("%w: %q", ErrUnknownGame, idOrKind))
}

func (r *Router) fail(err error) error {
	r.lastErr = err
	log.Warn().Err(err).Msg("mount refused")
	r.notify()
	return err
}

// LastError is the most recent mount or relay failure, cleared by the
// next successful mount.
func (r *Router) LastError() error { return r.lastErr }

// XP is the player's total as last reported by the server.
func (r *Router) XP() (int, bool) {
	if r.xp == nil {
		return 0, false
	}
	return *r.xp, true
}

// Active describes the mounted game.
func (r *Router) Active() (bus.OpenGame, game.Snapshot, bool) {
	if r.active == nil {
		return bus.OpenGame{}, game.Snapshot{}, false
	}
	return r.active.open, r.active.game.Snapshot(), true
}

// Handle routes an input to the mounted game. The lifecycle verbs start,
// pause, resume, finish and restart drive the game itself.
func (r *Router) Handle(a game.Action) error {
	if r.active == nil {
		return ErrNothingMounted
	}
	g := r.active.game
	switch a.Type {
	case "start":
		g.Start()
	case "pause":
		g.Pause()
	case "resume":
		g.Resume()
	case "finish":
		g.Finish()
	case "restart":
		g.Restart()
	default:
		return g.Handle(a)
	}
	return nil
}

// Turn exposes the team turn of a lobby team game. Actors are team
// indexes; a game without team turns lets everyone act.
func (r *Router) Turn() domain.TurnSource {
	return domain.TurnFunc(func(actor int64) bool {
		if r.active == nil {
			return false
		}
		tg, ok := r.active.game.(interface{ TeamTurn() (game.Team, bool) })
		if !ok {
			return true
		}
		team, live := tg.TeamTurn()
		return live && int64(team) == actor
	})
}

// Close unmounts the current game.
func (r *Router) Close() {
	r.unmount()
	r.notify()
}

func (r *Router) unmount() {
	if r.active == nil {
		return
	}
	log.Info().Str("mount", r.active.id).Str("kind", string(r.active.game.Kind())).Msg("game unmounted")
	r.active.game.Close()
	r.active = nil
}

func (r *Router) changed(m *mount) {
	if r.active == m {
		r.notify()
	}
}

func (r *Router) notify() {
	if r.opts.OnChange != nil {
		r.opts.OnChange()
	}
}

// finished relays res: lobby games end their session, everything else is
// recorded in the player's history. Once the server has it the game is
// unmounted; a failed relay leaves it mounted with LastError set.
func (r *Router) finished(m *mount, res domain.Result) {
	o := m.open
	kind := m.game.Kind()
	now := r.opts.Sched.Now()
	if r.opts.ExportFile != "" {
		rec := Record{
			Title:     m.entry.Title,
			Kind:      kind,
			Code:      o.Code,
			SessionID: o.SessionID,
			Players:   r.opts.Players,
			Started:   m.started,
			Ended:     now,
			Result:    res,
		}
		if err := Export(rec, r.opts.ExportFile); err != nil {
			log.Error().Err(err).Str("file", r.opts.ExportFile).Msg("failed to export game result")
		} else {
			log.Info().Str("file", r.opts.ExportFile).Msg("exported game result")
		}
	}
	if r.opts.Results == nil {
		return
	}

	var entry api.HistoryEntry
	lobby := o.Lobby && o.SessionID != 0
	if !lobby {
		entry = historyEntry(m.entry, res, now)
	}
	var receipt api.HistoryReceipt
	r.opts.Sched.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
		defer cancel()
		var err error
		if lobby {
			err = r.opts.Results.EndGame(ctx, o.Code, o.SessionID, res)
		} else {
			receipt, err = r.opts.Results.RecordHistory(ctx, entry)
		}
		r.opts.Sched.Post(func() {
			if err != nil {
				r.lastErr = fmt.Errorf("report result: %w", err)
				log.Warn().Err(err).Str("kind", string(kind)).Msg("reporting result failed")
			} else {
				if receipt.User.XP != nil {
					xp := *receipt.User.XP
					r.xp = &xp
				}
				log.Info().Int("xp", res.XPEarned).Bool("lobby", lobby).Msg("result reported")
			}
			if r.opts.OnRelayed != nil {
				r.opts.OnRelayed(o, res, err)
			}
			if err == nil && r.active == m {
				r.unmount()
			}
			r.notify()
		})
	})
}

func historyEntry(e game.Entry, res domain.Result, at time.Time) api.HistoryEntry {
	at = at.UTC()
	return api.HistoryEntry{
		GameID:          e.ID,
		GameTitle:       e.Title,
		Kind:            e.Kind,
		Category:        e.Category,
		DurationMinutes: e.Duration,
		Players:         e.Players,
		Difficulty:      e.Difficulty,
		Rounds:          res.Rounds,
		Skipped:         res.Skipped,
		XPEarned:        res.XPEarned,
		Meta:            res.Meta,
		PlayedAt:        &at,
	}
}
