package domain

import "time"

// Member is a presence record. Identity is the id; names may change
// between snapshots.
type Member struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ChatMessage is a lobby chat line. LocalID is set only on an optimistic
// copy that the server has not confirmed yet.
type ChatMessage struct {
	ID        int64     `json:"id"`
	User      Member    `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`

	LocalID string `json:"localId,omitempty"`
}

func (m ChatMessage) Pending() bool { return m.LocalID != "" }
