package main

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
	"github.com/PrinceLee1/lovey-dovey/internal/config"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
	"github.com/PrinceLee1/lovey-dovey/internal/game"
	"github.com/PrinceLee1/lovey-dovey/internal/launch"
	"github.com/PrinceLee1/lovey-dovey/internal/lobby"
	"github.com/PrinceLee1/lovey-dovey/internal/ws"
)

type noContent struct{}

func (noContent) TruthDare(context.Context, ai.TruthDareRequest) (ai.TruthDareBatch, error) {
	return ai.TruthDareBatch{}, nil
}
func (noContent) Trivia(context.Context, ai.TriviaRequest) ([]ai.Question, error) { return nil, nil }
func (noContent) Charades(context.Context, ai.CharadesRequest) ([]ai.Card, error) { return nil, nil }

type coupleServer struct {
	session domain.Session
	actions []string
}

func (s *coupleServer) CoupleSession(context.Context, string) (domain.Session, error) {
	return s.session, nil
}

func (s *coupleServer) SessionAction(_ context.Context, _ string, typ string, _ any) error {
	s.actions = append(s.actions, typ)
	return nil
}

func testConfig() config.Config {
	cfg, _ := config.FromEnv()
	cfg.UserID, cfg.UserName = 1, "Ada"
	cfg.WebURL = "https://couples.test"
	return cfg
}

func newApp(mode ws.Mode, code string) (*app, *eventloop.Manual) {
	clock := eventloop.NewManual(time.Date(2025, 2, 14, 20, 0, 0, 0, time.UTC))
	a := &app{mode: mode, code: code, cfg: testConfig()}
	a.router = launch.NewRouter(launch.Options{
		Sched:  clock,
		Source: noContent{},
		Rand:   rand.New(rand.NewSource(1)),
	})
	return a, clock
}

func TestSoloStartsCatalogGames(t *testing.T) {
	a, _ := newApp(ws.ModeSolo, "")

	require.NoError(t, a.StartGame("g2", nil))
	st := a.GameState()
	require.NotNil(t, st.Open)
	assert.Equal(t, domain.KindEmojiChat, st.Open.Kind)
	assert.Equal(t, game.PhaseIdle, st.Snapshot.Phase)

	require.NoError(t, a.GameAction(game.Action{Type: "start"}))
	assert.Equal(t, game.PhaseRunning, a.GameState().Snapshot.Phase)

	require.NoError(t, a.StartGame("memory_match", json.RawMessage(`{"size":4}`)))
	assert.Equal(t, domain.KindMemoryMatch, a.GameState().Open.Kind)

	err := a.StartGame("poker", nil)
	assert.ErrorIs(t, err, launch.ErrUnknownGame)
	assert.NotEmpty(t, a.GameState().LastError)
}

func TestSoloRejectsRoomControls(t *testing.T) {
	a, _ := newApp(ws.ModeSolo, "")

	assert.ErrorIs(t, a.SendChat("hi"), ws.ErrUnavailable)
	assert.ErrorIs(t, a.SessionAction("pick", nil), ws.ErrUnavailable)
	assert.ErrorIs(t, a.GameAction(game.Action{Type: "send"}), launch.ErrNothingMounted)
	_, ok := a.InviteURL()
	assert.False(t, ok)

	st := a.RoomState()
	assert.Equal(t, ws.ModeSolo, st.Mode)
	assert.Equal(t, "Ada", st.Me.Name)
	assert.NotNil(t, st.Members)
}

func TestLobbyInviteURL(t *testing.T) {
	a, _ := newApp(ws.ModeLobby, "ABCD")
	link, ok := a.InviteURL()
	require.True(t, ok)
	assert.Equal(t, "https://couples.test/lobby/ABCD", link)
}

func TestCoupleOpensSessionGameOnce(t *testing.T) {
	a, clock := newApp(ws.ModeCouple, "XY12")
	turn := int64(2)
	srv := &coupleServer{session: domain.Session{ID: 9, Kind: domain.KindTruthDare, Status: domain.StatusActive, TurnUserID: &turn}}
	a.couple = lobby.NewCouple(context.Background(), lobby.CoupleOptions{
		Code:     "XY12",
		Me:       a.cfg.Me(),
		API:      srv,
		Sched:    clock,
		OnChange: a.coupleChanged,
	})

	a.couple.Load(nil)
	clock.Drain()

	st := a.GameState()
	require.NotNil(t, st.Open)
	assert.Equal(t, int64(9), st.Open.SessionID)
	assert.False(t, st.Open.Lobby)
	first := st.Snapshot

	require.NoError(t, a.GameAction(game.Action{Type: "start"}))
	a.coupleChanged()
	assert.NotEqual(t, first.Phase, a.GameState().Snapshot.Phase, "same session must not be remounted")

	err := a.SessionAction("pick", json.RawMessage(`{"kind":"truth"}`))
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)
	require.NoError(t, a.SessionAction("finish", nil))
	clock.Drain()
	assert.Equal(t, []string{"finish"}, srv.actions)

	room := a.RoomState()
	require.NotNil(t, room.Session)
	assert.False(t, room.MyTurn)
}

func TestImmediate(t *testing.T) {
	boom := errors.New("boom")
	assert.ErrorIs(t, immediate(func(cb func(error)) { cb(boom) }), boom)

	var later func(error)
	assert.NoError(t, immediate(func(cb func(error)) { later = cb }))
	later(boom)
}
