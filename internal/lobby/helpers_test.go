package lobby

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/PrinceLee1/lovey-dovey/internal/api"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
	"github.com/PrinceLee1/lovey-dovey/internal/realtime"
)

var (
	ada = domain.Member{ID: 1, Name: "Ada"}
	bo  = domain.Member{ID: 2, Name: "Bo"}
	cy  = domain.Member{ID: 3, Name: "Cy"}
)

// fakeServer plays the lobby and couple endpoints from memory.
type fakeServer struct {
	mu       sync.Mutex
	lobby    domain.Lobby
	messages []domain.ChatMessage
	sessions []domain.Session
	couple   domain.Session

	sendErr  error
	startErr error
	nextID   int64
	calls    map[string]int
	started  []json.RawMessage
	actions  []string
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		lobby: domain.Lobby{ID: 5, Code: "ABCD", Name: "Friday", HostID: ada.ID},
		messages: []domain.ChatMessage{
			{ID: 1, User: ada, Body: "hello"},
			{ID: 2, User: bo, Body: "hey"},
		},
		nextID: 100,
		calls:  map[string]int{},
	}
}

func (f *fakeServer) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeServer) Lobby(context.Context, string) (domain.Lobby, error) {
	f.hit("lobby")
	return f.lobby, nil
}

func (f *fakeServer) Messages(context.Context, string) ([]domain.ChatMessage, error) {
	f.hit("messages")
	return append([]domain.ChatMessage(nil), f.messages...), nil
}

func (f *fakeServer) Sessions(context.Context, string) ([]domain.Session, error) {
	f.hit("sessions")
	return append([]domain.Session(nil), f.sessions...), nil
}

func (f *fakeServer) SendMessage(_ context.Context, _ string, body string) (domain.ChatMessage, error) {
	f.hit("send")
	if f.sendErr != nil {
		return domain.ChatMessage{}, f.sendErr
	}
	f.nextID++
	m := domain.ChatMessage{ID: f.nextID, User: ada, Body: body}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeServer) StartGame(_ context.Context, _ string, kind domain.Kind, settings json.RawMessage) (domain.Session, error) {
	f.hit("start")
	if f.startErr != nil {
		return domain.Session{}, f.startErr
	}
	f.started = append(f.started, settings)
	f.nextID++
	return domain.Session{ID: f.nextID, LobbyID: 5, Kind: kind, Status: domain.StatusActive, StartedBy: ada.ID}, nil
}

func (f *fakeServer) LeaveLobby(context.Context, string) error {
	f.hit("leave")
	return nil
}

func (f *fakeServer) CoupleSession(_ context.Context, code string) (domain.Session, error) {
	f.hit("couple")
	s := f.couple
	s.Code = code
	return s, nil
}

func (f *fakeServer) SessionAction(_ context.Context, _ string, typ string, _ any) error {
	f.hit("action:" + typ)
	f.actions = append(f.actions, typ)
	return nil
}

var errNetwork = &api.Error{Message: "Network Error"}

// fakeChannels hands events straight to the subscriber.
type fakeChannels struct {
	channel string
	fn      func(realtime.Event)
	joins   int
}

func (f *fakeChannels) Join(_ context.Context, channel string, fn func(realtime.Event)) (*realtime.Handle, error) {
	f.channel, f.fn = channel, fn
	f.joins++
	return &realtime.Handle{Channel: channel}, nil
}

func (f *fakeChannels) emit(ev realtime.Event) { f.fn(ev) }

func newClock() *eventloop.Manual {
	return eventloop.NewManual(time.Date(2025, 2, 14, 20, 0, 0, 0, time.UTC))
}
