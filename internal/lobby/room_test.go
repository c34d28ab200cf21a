package lobby

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrinceLee1/lovey-dovey/internal/bus"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
	"github.com/PrinceLee1/lovey-dovey/internal/realtime"
)

type roomFixture struct {
	srv    *fakeServer
	ch     *fakeChannels
	clock  *eventloop.Manual
	room   *Room
	opened []bus.OpenGame
}

func newRoomFixture(t *testing.T, me domain.Member) *roomFixture {
	t.Helper()
	f := &roomFixture{srv: newFakeServer(), ch: &fakeChannels{}, clock: newClock()}
	games := &bus.Topic[bus.OpenGame]{}
	games.Subscribe(func(o bus.OpenGame) { f.opened = append(f.opened, o) })
	f.room = NewRoom(context.Background(), RoomOptions{
		Code:     "ABCD",
		Me:       me,
		API:      f.srv,
		Channels: f.ch,
		Sched:    f.clock,
		Games:    games,
	})
	var loadErr error
	f.room.Load(func(err error) { loadErr = err })
	f.clock.Drain()
	require.NoError(t, loadErr)
	require.Equal(t, "presence-lobby.ABCD", f.ch.channel)
	f.ch.emit(realtime.PresenceSnapshot{Members: []domain.Member{ada, bo}})
	return f
}

func TestRoomLoadsEverythingThenJoins(t *testing.T) {
	f := newRoomFixture(t, ada)
	lobby, ok := f.room.Lobby()
	require.True(t, ok)
	assert.Equal(t, "Friday", lobby.Name)
	assert.Len(t, f.room.Messages(), 2)
	assert.Equal(t, []domain.Member{ada, bo}, f.room.Members())
	assert.False(t, f.room.PresenceStale())
	assert.True(t, f.room.IsHost())
	assert.Equal(t, 1, f.srv.calls["lobby"])
	assert.Equal(t, 1, f.srv.calls["messages"])
	assert.Equal(t, 1, f.srv.calls["sessions"])
}

func TestFailedSendRollsBackOptimisticMessage(t *testing.T) {
	f := newRoomFixture(t, ada)
	f.srv.sendErr = errNetwork
	before := len(f.room.Messages())

	var sendErr error
	f.room.SendMessage("  see you soon ", func(err error) { sendErr = err })
	shown := f.room.Messages()
	require.Len(t, shown, before+1)
	assert.True(t, shown[before].Pending())
	assert.Equal(t, "see you soon", shown[before].Body)

	f.clock.Drain()
	assert.ErrorIs(t, sendErr, errNetwork)
	after := f.room.Messages()
	assert.Len(t, after, before)
	for _, m := range after {
		assert.False(t, m.Pending())
	}
	assert.Equal(t, "Network Error", f.room.Notice())
}

func TestSuccessfulSendLeavesOneServerMessage(t *testing.T) {
	f := newRoomFixture(t, ada)
	f.room.SendMessage("hi", nil)
	f.clock.Drain()

	msgs := f.room.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, int64(101), msgs[2].ID)
	assert.False(t, msgs[2].Pending())

	// a late echo of the same message does not duplicate it
	f.ch.emit(realtime.MessageCreated{Message: msgs[2]})
	assert.Len(t, f.room.Messages(), 3)
}

func TestEchoBeforeConfirmationDoesNotDuplicate(t *testing.T) {
	f := newRoomFixture(t, ada)
	f.room.SendMessage("hi", nil)
	f.ch.emit(realtime.MessageCreated{Message: domain.ChatMessage{ID: 101, User: ada, Body: "hi"}})
	f.clock.Drain()

	var ids []int64
	for _, m := range f.room.Messages() {
		assert.False(t, m.Pending())
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{1, 2, 101}, ids)
}

func TestEmptyMessageIsRejectedLocally(t *testing.T) {
	f := newRoomFixture(t, ada)
	var err error
	f.room.SendMessage("   ", func(e error) { err = e })
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Zero(t, f.srv.calls["send"])
}

func TestJoiningThenLeavingLeavesNoGhost(t *testing.T) {
	f := newRoomFixture(t, ada)
	before := f.room.Members()

	f.ch.emit(realtime.MemberJoined{Member: cy})
	f.ch.emit(realtime.MemberLeft{Member: cy})
	assert.Equal(t, before, f.room.Members())

	// a second connection of someone already here
	f.ch.emit(realtime.MemberJoined{Member: bo})
	f.ch.emit(realtime.MemberLeft{Member: bo})
	assert.Equal(t, before, f.room.Members())
}

func TestOnlyHostStartsGames(t *testing.T) {
	f := newRoomFixture(t, bo)
	var err error
	f.room.StartGame(domain.KindTrivia, nil, func(e error) { err = e })
	assert.ErrorIs(t, err, ErrNotHost)
	assert.Zero(t, f.srv.calls["start"])
	assert.Empty(t, f.opened)

	assert.Equal(t, ErrNotHost.Error(), f.room.Notice())
	f.clock.Advance(time.Second)
	assert.NotEmpty(t, f.room.Notice())
	f.clock.Advance(300 * time.Millisecond)
	assert.Empty(t, f.room.Notice(), "host warning clears itself")
}

func TestNetworkNoticeStaysUntilDismissed(t *testing.T) {
	f := newRoomFixture(t, ada)
	f.srv.sendErr = errNetwork
	f.room.SendMessage("hi", nil)
	f.clock.Advance(30 * time.Second)
	assert.Equal(t, "Network Error", f.room.Notice())

	f.room.DismissNotice()
	assert.Empty(t, f.room.Notice())
}

func TestHostStartUsesDefaultsAndOpensGame(t *testing.T) {
	f := newRoomFixture(t, ada)
	var err error
	f.room.StartGame(domain.KindTrivia, nil, func(e error) { err = e })
	f.clock.Drain()
	require.NoError(t, err)

	require.Len(t, f.srv.started, 1)
	assert.JSONEq(t, `{"count":10,"secondsPerQ":30}`, string(f.srv.started[0]))
	sessions := f.room.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, domain.StatusActive, sessions[0].Status)
	require.Len(t, f.opened, 1)
	assert.Equal(t, bus.OpenGame{
		SessionID: 101, Kind: domain.KindTrivia, Code: "ABCD", Lobby: true,
		Settings: json.RawMessage(`{"count":10,"secondsPerQ":30}`),
	}, f.opened[0])

	// the broadcast for our own start merges into the same entry
	f.ch.emit(realtime.GameStarted{SessionID: 101, Kind: domain.KindTrivia, StartedBy: ada.ID})
	assert.Len(t, f.room.Sessions(), 1)
}

func TestCouplesGamesCannotStartInLobby(t *testing.T) {
	f := newRoomFixture(t, ada)
	var err error
	f.room.StartGame(domain.KindTruthDare, nil, func(e error) { err = e })
	assert.ErrorIs(t, err, ErrNotLobby)
}

func TestSessionListMergesNewestFirstWithoutRegressing(t *testing.T) {
	f := newRoomFixture(t, bo)
	f.ch.emit(realtime.GameStarted{SessionID: 7, Kind: domain.KindTrivia, StartedBy: ada.ID})
	f.ch.emit(realtime.GameStarted{SessionID: 8, Kind: domain.KindCharades, StartedBy: ada.ID})
	f.ch.emit(realtime.GameEnded{SessionID: 7, Result: json.RawMessage(`{"xpEarned":40}`)})
	active := domain.StatusActive
	f.ch.emit(realtime.SessionPatched{Patch: domain.SessionPatch{ID: 7, Status: &active}})

	s := f.room.Sessions()
	require.Len(t, s, 2)
	assert.Equal(t, int64(8), s[0].ID)
	assert.Equal(t, int64(7), s[1].ID)
	assert.Equal(t, domain.StatusEnded, s[1].Status)
	assert.Equal(t, int64(5), s[1].LobbyID)
	assert.JSONEq(t, `{"xpEarned":40}`, string(s[1].Result))
	assert.Empty(t, f.opened, "others' games open only with AutoOpen")
}

func TestReconnectMarksStaleAndRefetches(t *testing.T) {
	f := newRoomFixture(t, ada)
	f.ch.emit(realtime.ConnectionLost{})
	assert.True(t, f.room.PresenceStale())

	f.srv.messages = append(f.srv.messages, domain.ChatMessage{ID: 3, User: bo, Body: "missed"})
	f.ch.emit(realtime.Reconnected{})
	f.clock.Drain()
	assert.Equal(t, 2, f.srv.calls["lobby"])
	assert.Len(t, f.room.Messages(), 3)
	assert.True(t, f.room.PresenceStale(), "still stale until a fresh snapshot")
	assert.Equal(t, 1, f.ch.joins)

	f.ch.emit(realtime.PresenceSnapshot{Members: []domain.Member{ada}})
	assert.False(t, f.room.PresenceStale())
	assert.Equal(t, []domain.Member{ada}, f.room.Members())
}

func TestCloseDropsLateResponses(t *testing.T) {
	srv := newFakeServer()
	clock := newClock()
	r := NewRoom(context.Background(), RoomOptions{Code: "ABCD", Me: ada, API: srv, Sched: clock})
	called := false
	r.Load(func(error) { called = true })
	r.Close()
	clock.Drain()
	assert.False(t, called)
	_, ok := r.Lobby()
	assert.False(t, ok)
}

func TestLeaveClosesRoom(t *testing.T) {
	f := newRoomFixture(t, ada)
	var err error
	f.room.Leave(func(e error) { err = e })
	f.clock.Drain()
	require.NoError(t, err)
	assert.Equal(t, 1, f.srv.calls["leave"])
	f.room.SendMessage("anyone?", func(e error) { err = e })
	assert.ErrorIs(t, err, ErrClosed)
}
