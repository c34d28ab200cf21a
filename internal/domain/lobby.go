package domain

import "time"

type Privacy string

const (
	PrivacyPublic  Privacy = "Public"
	PrivacyPrivate Privacy = "Private"
)

type LobbyStatus string

const (
	LobbyOpen       LobbyStatus = "open"
	LobbyInProgress LobbyStatus = "in_progress"
	LobbyEnded      LobbyStatus = "ended"
)

// Lobby is the room metadata returned by GET /lobbies/{code}.
type Lobby struct {
	ID         int64       `json:"id"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	MaxPlayers int         `json:"max_players"`
	EntryCoins int         `json:"entry_coins"`
	Privacy    Privacy     `json:"privacy"`
	Status     LobbyStatus `json:"status"`
	StartAt    *time.Time  `json:"start_at,omitempty"`
	HostID     int64       `json:"host_id"`
}
