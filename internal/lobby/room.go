// Package lobby mirrors server-owned rooms: a multiplayer lobby with chat
// and game sessions, and a two-person couple session. Everything here runs
// on the event loop; network work hops off it and results come back
// through the Scheduler.
package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/PrinceLee1/lovey-dovey/internal/api"
	"github.com/PrinceLee1/lovey-dovey/internal/bus"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
	"github.com/PrinceLee1/lovey-dovey/internal/game"
	"github.com/PrinceLee1/lovey-dovey/internal/realtime"
)

var (
	ErrNotHost   = errors.New("only the host can start games")
	ErrNotLobby  = errors.New("game cannot be hosted in a lobby")
	ErrClosed    = errors.New("room was closed")
	ErrNotLoaded = errors.New("room is not loaded yet")
)

const defaultTimeout = 15 * time.Second

// LobbyAPI is the part of the server a Room needs.
type LobbyAPI interface {
	Lobby(ctx context.Context, code string) (domain.Lobby, error)
	Messages(ctx context.Context, code string) ([]domain.ChatMessage, error)
	Sessions(ctx context.Context, code string) ([]domain.Session, error)
	SendMessage(ctx context.Context, code, body string) (domain.ChatMessage, error)
	StartGame(ctx context.Context, code string, kind domain.Kind, settings json.RawMessage) (domain.Session, error)
	LeaveLobby(ctx context.Context, code string) error
}

// Joiner subscribes to a presence channel; *realtime.Adapter is one.
type Joiner interface {
	Join(ctx context.Context, channel string, fn func(realtime.Event)) (*realtime.Handle, error)
}

type RoomOptions struct {
	Code     string
	Me       domain.Member
	API      LobbyAPI
	Channels Joiner
	Sched    eventloop.Scheduler
	// Games receives an OpenGame when this client starts a game, and for
	// games started by others when AutoOpen is set.
	Games    *bus.Topic[bus.OpenGame]
	AutoOpen bool
	OnChange func()
	Timeout  time.Duration
}

type Room struct {
	opts RoomOptions
	ctx  context.Context
	stop context.CancelFunc
	log  zerolog.Logger

	lobby    *domain.Lobby
	roster   Roster
	stale    bool
	messages []domain.ChatMessage
	sessions []domain.Session
	notice   banner

	epoch   int
	loading bool
	handle  *realtime.Handle
	joining bool
	closed  bool
}

func NewRoom(ctx context.Context, opts RoomOptions) *Room {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	ctx, stop := context.WithCancel(ctx)
	return &Room{
		opts:  opts,
		ctx:   ctx,
		stop:  stop,
		log:   log.With().Str("code", opts.Code).Logger(),
		stale: true,
	}
}

func (r *Room) Code() string { return r.opts.Code }

func (r *Room) Lobby() (domain.Lobby, bool) {
	if r.lobby == nil {
		return domain.Lobby{}, false
	}
	return *r.lobby, true
}

func (r *Room) Members() []domain.Member { return r.roster.Members() }

// PresenceStale is true until the first snapshot and again after the
// channel dropped.
func (r *Room) PresenceStale() bool { return r.stale }

func (r *Room) Messages() []domain.ChatMessage { return slices.Clone(r.messages) }

// Sessions lists the lobby's games, newest first.
func (r *Room) Sessions() []domain.Session { return slices.Clone(r.sessions) }

func (r *Room) Notice() string { return r.notice.text }

// Loading is true while a fetch of the whole room is outstanding.
func (r *Room) Loading() bool { return r.loading }

func (r *Room) DismissNotice() {
	if r.notice.clear() {
		r.changed()
	}
}

func (r *Room) IsHost() bool {
	return r.lobby != nil && r.lobby.HostID == r.opts.Me.ID
}

// offLoop runs work away from the loop and hands its result back through
// done unless the room was closed. With reload set, a later Load also
// drops the result.
func (r *Room) offLoop(reload bool, work func(ctx context.Context) error, done func(error)) {
	epoch := r.epoch
	ctx := r.ctx
	r.opts.Sched.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
		err := work(ctx)
		r.opts.Sched.Post(func() {
			if r.closed || (reload && epoch != r.epoch) {
				r.log.Debug().Msg("dropping stale room response")
				return
			}
			done(err)
		})
	})
}

// Load fetches the lobby, its chat and its sessions in parallel, then
// joins the presence channel. Calling it again refetches.
func (r *Room) Load(cb func(error)) {
	if r.closed {
		call(cb, ErrClosed)
		return
	}
	r.epoch++
	r.loading = true
	var (
		lobby    domain.Lobby
		messages []domain.ChatMessage
		sessions []domain.Session
	)
	code := r.opts.Code
	r.offLoop(true, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			lobby, err = r.opts.API.Lobby(ctx, code)
			return err
		})
		g.Go(func() (err error) {
			messages, err = r.opts.API.Messages(ctx, code)
			return err
		})
		g.Go(func() (err error) {
			sessions, err = r.opts.API.Sessions(ctx, code)
			return err
		})
		return g.Wait()
	}, func(err error) {
		r.loading = false
		if err != nil {
			r.log.Warn().Err(err).Msg("loading room failed")
			r.notice.set(api.Message(err))
			r.changed()
			call(cb, fmt.Errorf("load lobby %s: %w", code, err))
			return
		}
		r.lobby = &lobby
		r.messages = mergeMessages(messages, r.messages)
		r.sessions = sessions
		r.log.Info().Int("messages", len(messages)).Int("sessions", len(sessions)).Msg("room loaded")
		r.join()
		r.changed()
		call(cb, nil)
	})
}

// mergeMessages takes the server list and keeps unconfirmed local sends at
// the end.
func mergeMessages(server, local []domain.ChatMessage) []domain.ChatMessage {
	out := slices.Clone(server)
	for _, m := range local {
		if m.Pending() {
			out = append(out, m)
		}
	}
	return out
}

func (r *Room) join() {
	if r.handle != nil || r.joining || r.opts.Channels == nil {
		return
	}
	r.joining = true
	channel := realtime.LobbyChannel(r.opts.Code)
	ctx := r.ctx
	r.opts.Sched.Go(func() {
		h, err := r.opts.Channels.Join(ctx, channel, r.onEvent)
		r.opts.Sched.Post(func() {
			r.joining = false
			if err != nil {
				r.log.Warn().Err(err).Str("channel", channel).Msg("joining channel failed")
				r.notice.set(api.Message(err))
				r.changed()
				return
			}
			if r.closed {
				h.Leave()
				return
			}
			r.handle = h
		})
	})
}

func (r *Room) onEvent(ev realtime.Event) {
	if r.closed {
		return
	}
	switch e := ev.(type) {
	case realtime.PresenceSnapshot:
		r.roster.Reset(e.Members)
		r.stale = false
	case realtime.MemberJoined:
		r.roster.Join(e.Member)
	case realtime.MemberLeft:
		r.roster.Leave(e.Member)
	case realtime.MessageCreated:
		r.addMessage(e.Message)
	case realtime.GameStarted:
		var lobbyID int64
		if r.lobby != nil {
			lobbyID = r.lobby.ID
		}
		r.upsert(e.AsPatch(lobbyID, r.opts.Sched.Now().UTC()))
		if r.opts.AutoOpen && e.StartedBy != r.opts.Me.ID {
			r.open(e.SessionID, e.Kind, e.Settings)
		}
	case realtime.GameEnded:
		r.upsert(e.AsPatch())
	case realtime.SessionPatched:
		r.upsert(e.Patch)
	case realtime.ConnectionLost:
		r.log.Info().Err(e.Err).Msg("presence is stale")
		r.stale = true
	case realtime.Reconnected:
		r.log.Info().Msg("channel reconnected, refetching room")
		r.Load(nil)
	}
	r.changed()
}

func (r *Room) addMessage(m domain.ChatMessage) {
	for _, have := range r.messages {
		if have.ID == m.ID && !have.Pending() {
			return
		}
	}
	r.messages = append(r.messages, m)
}

// upsert merges p into the session with the same id, or puts a new session
// at the front.
func (r *Room) upsert(p domain.SessionPatch) {
	for i, s := range r.sessions {
		if s.ID != p.ID {
			continue
		}
		merged, err := s.Merge(p)
		if err != nil {
			r.log.Debug().Err(err).Int64("sessionId", s.ID).Msg("ignoring status regression")
		}
		if merged.Status != s.Status {
			r.log.Info().Int64("sessionId", s.ID).Str("from", string(s.Status)).Str("to", string(merged.Status)).Msg("session status")
		}
		r.sessions[i] = merged
		return
	}
	s, _ := domain.Session{}.Merge(p)
	r.log.Info().Int64("sessionId", s.ID).Str("kind", string(s.Kind)).Str("status", string(s.Status)).Msg("session added")
	r.sessions = append([]domain.Session{s}, r.sessions...)
}

// SendMessage shows body right away and swaps in the server's copy once
// it is stored. A failed send removes the local copy again.
func (r *Room) SendMessage(body string, cb func(error)) {
	body = strings.TrimSpace(body)
	if body == "" {
		call(cb, domain.ErrEmptyMessage)
		return
	}
	if r.closed {
		call(cb, ErrClosed)
		return
	}
	local := domain.ChatMessage{
		User:      r.opts.Me,
		Body:      body,
		CreatedAt: r.opts.Sched.Now().UTC(),
		LocalID:   uuid.NewString(),
	}
	r.messages = append(r.messages, local)
	r.changed()

	var saved domain.ChatMessage
	code := r.opts.Code
	r.offLoop(false, func(ctx context.Context) (err error) {
		saved, err = r.opts.API.SendMessage(ctx, code, body)
		return err
	}, func(err error) {
		i := slices.IndexFunc(r.messages, func(m domain.ChatMessage) bool { return m.LocalID == local.LocalID })
		if err != nil {
			if i >= 0 {
				r.messages = slices.Delete(r.messages, i, i+1)
			}
			r.notice.set(api.Message(err))
			r.log.Warn().Err(err).Msg("sending message failed")
			r.changed()
			call(cb, err)
			return
		}
		dup := slices.ContainsFunc(r.messages, func(m domain.ChatMessage) bool { return !m.Pending() && m.ID == saved.ID })
		switch {
		case i >= 0 && dup:
			r.messages = slices.Delete(r.messages, i, i+1)
		case i >= 0:
			r.messages[i] = saved
		case !dup:
			r.messages = append(r.messages, saved)
		}
		r.changed()
		call(cb, nil)
	})
}

// StartGame asks the server to start kind and opens it locally. Nil
// settings mean the kind's defaults.
func (r *Room) StartGame(kind domain.Kind, settings json.RawMessage, cb func(error)) {
	switch {
	case r.closed:
		call(cb, ErrClosed)
		return
	case r.lobby == nil:
		call(cb, ErrNotLoaded)
		return
	case !kind.LobbyHosted():
		call(cb, fmt.Errorf("%w: %s", ErrNotLobby, kind))
		return
	case !r.IsHost():
		r.notice.warn(r.opts.Sched, ErrNotHost.Error(), r.changed)
		r.changed()
		call(cb, ErrNotHost)
		return
	}
	if len(settings) == 0 {
		settings = game.DefaultSettings(kind)
	}
	var s domain.Session
	code := r.opts.Code
	r.offLoop(false, func(ctx context.Context) (err error) {
		s, err = r.opts.API.StartGame(ctx, code, kind, settings)
		return err
	}, func(err error) {
		if err != nil {
			r.notice.set(api.Message(err))
			r.log.Warn().Err(err).Str("kind", string(kind)).Msg("starting game failed")
			r.changed()
			call(cb, err)
			return
		}
		if s.Kind == "" {
			s.Kind = kind
		}
		if len(s.Settings) == 0 {
			s.Settings = settings
		}
		r.upsert(s.Patch())
		r.open(s.ID, s.Kind, s.Settings)
		r.changed()
		call(cb, nil)
	})
}

// OpenSession re-opens a running session from the list, for members who
// joined late.
func (r *Room) OpenSession(id int64) error {
	for _, s := range r.sessions {
		if s.ID == id {
			if s.Status.Terminal() {
				return fmt.Errorf("session %d already %s", id, s.Status)
			}
			r.open(s.ID, s.Kind, s.Settings)
			return nil
		}
	}
	return fmt.Errorf("session %d not found", id)
}

func (r *Room) open(id int64, kind domain.Kind, settings json.RawMessage) {
	if r.opts.Games == nil {
		return
	}
	r.opts.Games.Publish(bus.OpenGame{SessionID: id, Kind: kind, Code: r.opts.Code, Lobby: true, Settings: settings})
}

// Leave tells the server we left and closes the room.
func (r *Room) Leave(cb func(error)) {
	if r.closed {
		call(cb, ErrClosed)
		return
	}
	code := r.opts.Code
	r.offLoop(false, func(ctx context.Context) error {
		return r.opts.API.LeaveLobby(ctx, code)
	}, func(err error) {
		if err != nil {
			r.notice.set(api.Message(err))
			r.changed()
			call(cb, err)
			return
		}
		r.log.Info().Msg("left lobby")
		r.Close()
		call(cb, nil)
	})
}

// Close leaves the channel and drops every outstanding response.
func (r *Room) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.epoch++
	r.notice.stop()
	r.stop()
	if r.handle != nil {
		r.handle.Leave()
		r.handle = nil
	}
}

func (r *Room) changed() {
	if r.opts.OnChange != nil && !r.closed {
		r.opts.OnChange()
	}
}

func call(cb func(error), err error) {
	if cb != nil {
		cb(err)
	}
}
