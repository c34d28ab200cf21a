package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
	StatusAborted Status = "aborted"
)

func (s Status) rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusActive:
		return 1
	case StatusEnded, StatusAborted:
		return 2
	}
	return -1
}

func (s Status) Terminal() bool { return s.rank() == 2 }

// CanBecome reports whether a mirror at s may accept next. Forward jumps are
// allowed because channel events are at-most-once; an active event may be
// lost and the next thing we hear is the end.
func (s Status) CanBecome(next Status) bool {
	if next == s {
		return true
	}
	if next.rank() < 0 {
		return false
	}
	return next.rank() > s.rank()
}

// Session is the client mirror of a server-owned game session. Lobby
// sessions and couple sessions share the shape; fields a kind of session
// never carries stay zero.
type Session struct {
	ID         int64           `json:"id"`
	LobbyID    int64           `json:"lobby_id,omitempty"`
	Code       string          `json:"code,omitempty"`
	Kind       Kind            `json:"kind"`
	Status     Status          `json:"status"`
	Round      int             `json:"round"`
	TurnUserID *int64          `json:"turnUserId"`
	StartedBy  int64           `json:"started_by,omitempty"`
	Settings   json.RawMessage `json:"settings,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	State      json.RawMessage `json:"state,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	EndedAt    *time.Time      `json:"ended_at,omitempty"`
}

// SessionPatch is a partial session update. Nil fields were absent from the
// payload and leave the mirror untouched.
type SessionPatch struct {
	ID         int64
	LobbyID    *int64
	Code       *string
	Kind       *Kind
	Status     *Status
	Round      *int
	TurnUserID **int64
	StartedBy  *int64
	Settings   json.RawMessage
	Result     json.RawMessage
	State      json.RawMessage
	StartedAt  *time.Time
	EndedAt    *time.Time
}

// Patch turns a full session into a patch that overwrites every field.
func (s Session) Patch() SessionPatch {
	turn := s.TurnUserID
	p := SessionPatch{
		ID:         s.ID,
		Kind:       &s.Kind,
		Status:     &s.Status,
		Round:      &s.Round,
		TurnUserID: &turn,
		Settings:   s.Settings,
		Result:     s.Result,
		State:      s.State,
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
	}
	if s.LobbyID != 0 {
		p.LobbyID = &s.LobbyID
	}
	if s.Code != "" {
		p.Code = &s.Code
	}
	if s.StartedBy != 0 {
		p.StartedBy = &s.StartedBy
	}
	return p
}

// Merge applies p last-write-wins on the fields it carries. A status that
// would move the session backwards is dropped and reported as
// ErrStatusRegression; the remaining fields are still applied.
func (s Session) Merge(p SessionPatch) (Session, error) {
	var err error
	if p.ID != 0 {
		s.ID = p.ID
	}
	if p.LobbyID != nil {
		s.LobbyID = *p.LobbyID
	}
	if p.Code != nil {
		s.Code = *p.Code
	}
	if p.Kind != nil && *p.Kind != "" {
		s.Kind = *p.Kind
	}
	if p.Status != nil {
		if s.Status.CanBecome(*p.Status) {
			s.Status = *p.Status
		} else {
			err = fmt.Errorf("%w: %s -> %s", ErrStatusRegression, s.Status, *p.Status)
		}
	}
	if p.Round != nil {
		s.Round = *p.Round
	}
	if p.TurnUserID != nil {
		s.TurnUserID = *p.TurnUserID
	}
	if p.StartedBy != nil {
		s.StartedBy = *p.StartedBy
	}
	if p.Settings != nil {
		s.Settings = p.Settings
	}
	if p.Result != nil {
		s.Result = p.Result
	}
	if p.State != nil {
		s.State = p.State
	}
	if p.StartedAt != nil {
		s.StartedAt = p.StartedAt
	}
	if p.EndedAt != nil {
		s.EndedAt = p.EndedAt
	}
	return s, err
}

// DecodePatch reads a session event payload. Both the lobby spelling
// (snake_case, sessionId) and the couple spelling (camelCase) are accepted.
func DecodePatch(data []byte) (SessionPatch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return SessionPatch{}, fmt.Errorf("decode session patch: %w", err)
	}
	var p SessionPatch
	field := func(names ...string) (json.RawMessage, bool) {
		for _, n := range names {
			if v, ok := raw[n]; ok {
				return v, true
			}
		}
		return nil, false
	}
	decode := func(v json.RawMessage, dst any, name string) error {
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("decode session patch %s: %w", name, err)
		}
		return nil
	}

	if v, ok := field("sessionId", "session_id", "id"); ok {
		if err := decode(v, &p.ID, "id"); err != nil {
			return p, err
		}
	}
	if v, ok := field("lobby_id", "lobbyId"); ok {
		var id int64
		if err := decode(v, &id, "lobby_id"); err != nil {
			return p, err
		}
		p.LobbyID = &id
	}
	if v, ok := field("code"); ok {
		var code string
		if err := decode(v, &code, "code"); err != nil {
			return p, err
		}
		p.Code = &code
	}
	if v, ok := field("kind"); ok {
		var k Kind
		if err := decode(v, &k, "kind"); err != nil {
			return p, err
		}
		p.Kind = &k
	}
	if v, ok := field("status"); ok {
		var st Status
		if err := decode(v, &st, "status"); err != nil {
			return p, err
		}
		p.Status = &st
	}
	if v, ok := field("round"); ok {
		var r int
		if err := decode(v, &r, "round"); err != nil {
			return p, err
		}
		p.Round = &r
	}
	if v, ok := field("turnUserId", "turn_user_id"); ok {
		var id *int64
		if err := decode(v, &id, "turnUserId"); err != nil {
			return p, err
		}
		p.TurnUserID = &id
	}
	if v, ok := field("started_by", "startedBy"); ok {
		var id int64
		if err := decode(v, &id, "started_by"); err != nil {
			return p, err
		}
		p.StartedBy = &id
	}
	if v, ok := field("settings"); ok {
		p.Settings = v
	}
	if v, ok := field("result"); ok {
		p.Result = v
	}
	if v, ok := field("state"); ok {
		p.State = v
	}
	if v, ok := field("started_at", "startedAt"); ok && string(v) != "null" {
		var ts time.Time
		if err := decode(v, &ts, "started_at"); err != nil {
			return p, err
		}
		p.StartedAt = &ts
	}
	if v, ok := field("ended_at", "endedAt"); ok && string(v) != "null" {
		var ts time.Time
		if err := decode(v, &ts, "ended_at"); err != nil {
			return p, err
		}
		p.EndedAt = &ts
	}
	return p, nil
}
