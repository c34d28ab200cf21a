package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/game"
	"github.com/PrinceLee1/lovey-dovey/internal/launch"
	"github.com/PrinceLee1/lovey-dovey/internal/lobby"
)

const callTimeout = 5 * time.Second

// Caller runs a closure on the event loop and waits; *eventloop.Loop is one.
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

type Server struct {
	loop Caller
	ctl  Controller

	mu      sync.Mutex
	members map[string]socketio.Conn // socketID -> Conn
	latest  *frame
	kick    chan struct{}
}

type frame struct {
	room RoomState
	game GameState
}

func New(loop Caller, ctl Controller) *Server {
	return &Server{
		loop:    loop,
		ctl:     ctl,
		members: make(map[string]socketio.Conn),
		kick:    make(chan struct{}, 1),
	}
}

// Mount attaches Socket.IO server with handlers to the given Gin engine.
// Broadcasts are pushed until ctx ends.
func (srv *Server) Mount(ctx context.Context, r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		srv.addMember(s)
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		var st frame
		if err := srv.onLoop(func() error {
			st = srv.snapshot()
			return nil
		}); err != nil {
			return err
		}
		s.Emit("room:state", st.room)
		s.Emit("game:state", st.game)
		return nil
	})

	io.OnEvent("/", "chat:send", func(s socketio.Conn, payload struct {
		Body string `json:"body"`
	}) map[string]any {
		if err := srv.onLoop(func() error { return srv.ctl.SendChat(payload.Body) }); err != nil {
			return srv.err(s, err)
		}
		log.Debug().Str("sid", s.ID()).Msg("chat:send")
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "game:start", func(s socketio.Conn, payload struct {
		Kind     string          `json:"kind"`
		Settings json.RawMessage `json:"settings"`
	}) map[string]any {
		if err := srv.onLoop(func() error { return srv.ctl.StartGame(payload.Kind, payload.Settings) }); err != nil {
			return srv.err(s, err)
		}
		log.Info().Str("sid", s.ID()).Str("kind", payload.Kind).Msg("game:start")
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "game:action", func(s socketio.Conn, a game.Action) map[string]any {
		if err := srv.onLoop(func() error { return srv.ctl.GameAction(a) }); err != nil {
			return srv.err(s, err)
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "session:action", func(s socketio.Conn, payload struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}) map[string]any {
		if err := srv.onLoop(func() error { return srv.ctl.SessionAction(payload.Type, payload.Payload) }); err != nil {
			return srv.err(s, err)
		}
		log.Info().Str("sid", s.ID()).Str("action", payload.Type).Msg("session:action")
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			log.Error().Err(e).Msg("socket error")
			return
		}
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.removeMember(s)
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io server stopped")
		}
	}()
	go srv.pump(ctx)

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// Broadcast queues the current state for every connection. It must run on
// the loop; bursts of changes are coalesced into one push.
func (srv *Server) Broadcast() {
	st := srv.snapshot()
	srv.mu.Lock()
	srv.latest = &st
	srv.mu.Unlock()
	select {
	case srv.kick <- struct{}{}:
	default:
	}
}

func (srv *Server) snapshot() frame {
	return frame{room: srv.ctl.RoomState(), game: srv.ctl.GameState()}
}

func (srv *Server) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-srv.kick:
		}
		srv.flush()
	}
}

func (srv *Server) flush() {
	srv.mu.Lock()
	st := srv.latest
	srv.latest = nil
	conns := make([]socketio.Conn, 0, len(srv.members))
	for _, c := range srv.members {
		conns = append(conns, c)
	}
	srv.mu.Unlock()
	if st == nil {
		return
	}
	for _, c := range conns {
		c.Emit("room:state", st.room)
		c.Emit("game:state", st.game)
	}
}

func (srv *Server) onLoop(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	res := make(chan error, 1)
	if err := srv.loop.Call(ctx, func() { res <- fn() }); err != nil {
		return err
	}
	return <-res
}

func (srv *Server) addMember(c socketio.Conn) {
	srv.mu.Lock()
	srv.members[c.ID()] = c
	srv.mu.Unlock()
}

func (srv *Server) removeMember(c socketio.Conn) {
	srv.mu.Lock()
	delete(srv.members, c.ID())
	srv.mu.Unlock()
}

func (srv *Server) err(s socketio.Conn, e error) map[string]any {
	code, message := errorCode(e), e.Error()
	log.Warn().Str("sid", s.ID()).Str("code", code).Err(e).Msg("control rejected")
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, domain.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, lobby.ErrNotHost):
		return "not_host"
	case errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, launch.ErrUnsupportedKind),
		errors.Is(err, launch.ErrUnknownGame),
		errors.Is(err, lobby.ErrNotLobby):
		return "unsupported_kind"
	case errors.Is(err, launch.ErrInvalidSettings):
		return "invalid_settings"
	case errors.Is(err, launch.ErrNothingMounted):
		return "no_game"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}
	return "bad_request"
}
