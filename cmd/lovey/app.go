package main

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/PrinceLee1/lovey-dovey/internal/bus"
	"github.com/PrinceLee1/lovey-dovey/internal/config"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/game"
	"github.com/PrinceLee1/lovey-dovey/internal/launch"
	"github.com/PrinceLee1/lovey-dovey/internal/lobby"
	"github.com/PrinceLee1/lovey-dovey/internal/ws"
)

// app is what the control surface drives. Exactly one of room and couple
// is set outside solo mode. It lives on the event loop.
type app struct {
	mode ws.Mode
	code string
	cfg  config.Config

	room   *lobby.Room
	couple *lobby.Couple
	router *launch.Router

	// opened is the couple session whose game is mounted.
	opened int64
}

var _ ws.Controller = (*app)(nil)

func (a *app) RoomState() ws.RoomState {
	st := ws.RoomState{Mode: a.mode, Code: a.code, Me: a.cfg.Me(), Members: []domain.Member{}}
	switch {
	case a.room != nil:
		if l, ok := a.room.Lobby(); ok {
			st.Lobby = &l
		}
		st.Members = a.room.Members()
		st.PresenceStale = a.room.PresenceStale()
		st.Messages = a.room.Messages()
		st.Sessions = a.room.Sessions()
		st.Notice = a.room.Notice()
		st.Loading = a.room.Loading()
		st.IsHost = a.room.IsHost()
	case a.couple != nil:
		if s, ok := a.couple.Session(); ok {
			st.Session = &s
		}
		st.Members = a.couple.Members()
		st.PresenceStale = a.couple.PresenceStale()
		st.Notice = a.couple.Notice()
		st.MyTurn = a.couple.MyTurn()
	}
	return st
}

func (a *app) GameState() ws.GameState {
	var st ws.GameState
	if open, snap, ok := a.router.Active(); ok {
		st.Open, st.Snapshot = &open, &snap
	}
	if xp, ok := a.router.XP(); ok {
		st.XP = &xp
	}
	if err := a.router.LastError(); err != nil {
		st.LastError = err.Error()
	}
	return st
}

func (a *app) SendChat(body string) error {
	if a.room == nil {
		return ws.ErrUnavailable
	}
	return immediate(func(cb func(error)) { a.room.SendMessage(body, cb) })
}

// StartGame starts a lobby game on the server, or opens a catalog game
// locally in the other modes.
func (a *app) StartGame(kind string, settings json.RawMessage) error {
	if a.room != nil {
		k, err := domain.ParseKind(kind)
		if err != nil {
			return err
		}
		return immediate(func(cb func(error)) { a.room.StartGame(k, settings, cb) })
	}
	k, err := domain.ParseKind(kind)
	if err != nil {
		return a.router.OpenCatalog(kind, a.code)
	}
	return a.router.Open(bus.OpenGame{Kind: k, Code: a.code, Settings: settings})
}

func (a *app) GameAction(act game.Action) error {
	return a.router.Handle(act)
}

func (a *app) SessionAction(typ string, payload json.RawMessage) error {
	if a.couple == nil {
		return ws.ErrUnavailable
	}
	var body any
	if len(payload) > 0 {
		body = payload
	}
	return immediate(func(cb func(error)) { a.couple.Act(typ, body, cb) })
}

func (a *app) InviteURL() (string, bool) {
	if a.mode != ws.ModeLobby {
		return "", false
	}
	return a.cfg.InviteURL(a.code), true
}

// coupleChanged mounts the session's game the first time it is known.
func (a *app) coupleChanged() {
	if a.couple == nil {
		return
	}
	s, ok := a.couple.Session()
	if !ok || s.Kind == "" || s.ID == a.opened || s.Status.Terminal() {
		return
	}
	a.opened = s.ID
	err := a.router.Open(bus.OpenGame{SessionID: s.ID, Kind: s.Kind, Code: a.code, Settings: s.Settings})
	if err != nil {
		log.Warn().Err(err).Int64("sessionId", s.ID).Msg("cannot open couple game")
	}
}

// immediate starts an operation and returns the error it reports before
// going to the network. Later failures surface as notices.
func immediate(start func(cb func(error))) error {
	var err error
	sync := true
	start(func(e error) {
		if sync {
			err = e
			return
		}
		if e != nil && !errors.Is(e, lobby.ErrClosed) {
			log.Debug().Err(e).Msg("control finished with error")
		}
	})
	sync = false
	return err
}
