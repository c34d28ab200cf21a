package realtime

import (
	"encoding/json"
	"time"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

// Event is something that happened on a room channel. The concrete types
// below are the only implementations.
type Event interface{ event() }

// PresenceSnapshot replaces the member list wholesale.
type PresenceSnapshot struct{ Members []domain.Member }

type MemberJoined struct{ Member domain.Member }

type MemberLeft struct{ Member domain.Member }

type MessageCreated struct{ Message domain.ChatMessage }

type GameStarted struct {
	SessionID int64           `json:"sessionId"`
	Kind      domain.Kind     `json:"kind"`
	StartedBy int64           `json:"started_by"`
	Settings  json.RawMessage `json:"settings"`
}

type GameEnded struct {
	SessionID int64           `json:"sessionId"`
	Result    json.RawMessage `json:"result"`
	EndedAt   *time.Time      `json:"ended_at"`
}

// SessionPatched carries a partial session from session.created or
// session.updated.
type SessionPatched struct {
	Created bool
	Patch   domain.SessionPatch
}

// ConnectionLost means presence may be out of date until Reconnected.
type ConnectionLost struct{ Err error }

// Reconnected follows a ConnectionLost once the channel is subscribed
// again. Buffered state should be refetched.
type Reconnected struct{}

func (PresenceSnapshot) event() {}
func (MemberJoined) event()     {}
func (MemberLeft) event()       {}
func (MessageCreated) event()   {}
func (GameStarted) event()      {}
func (GameEnded) event()        {}
func (SessionPatched) event()   {}
func (ConnectionLost) event()   {}
func (Reconnected) event()      {}

// AsPatch turns a lobby start notice into a session patch.
func (e GameStarted) AsPatch(lobbyID int64, at time.Time) domain.SessionPatch {
	status := domain.StatusActive
	kind := e.Kind
	p := domain.SessionPatch{
		ID:        e.SessionID,
		Kind:      &kind,
		Status:    &status,
		StartedBy: &e.StartedBy,
		Settings:  e.Settings,
		StartedAt: &at,
	}
	if lobbyID != 0 {
		p.LobbyID = &lobbyID
	}
	return p
}

// AsPatch turns a lobby end notice into a session patch.
func (e GameEnded) AsPatch() domain.SessionPatch {
	status := domain.StatusEnded
	return domain.SessionPatch{
		ID:      e.SessionID,
		Status:  &status,
		Result:  e.Result,
		EndedAt: e.EndedAt,
	}
}
