package ws

import (
	"encoding/json"
	"errors"

	"github.com/PrinceLee1/lovey-dovey/internal/bus"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/game"
)

// ErrUnavailable is returned for controls the current mode has no use for,
// like chat outside a lobby.
var ErrUnavailable = errors.New("not available in this mode")

type Mode string

const (
	ModeLobby  Mode = "lobby"
	ModeCouple Mode = "couple"
	ModeSolo   Mode = "solo"
)

// RoomState is what room:state carries.
type RoomState struct {
	Mode          Mode                 `json:"mode"`
	Code          string               `json:"code,omitempty"`
	Me            domain.Member        `json:"me"`
	Lobby         *domain.Lobby        `json:"lobby,omitempty"`
	Session       *domain.Session      `json:"session,omitempty"`
	Members       []domain.Member      `json:"members"`
	PresenceStale bool                 `json:"presenceStale"`
	Messages      []domain.ChatMessage `json:"messages,omitempty"`
	Sessions      []domain.Session     `json:"sessions,omitempty"`
	Notice        string               `json:"notice,omitempty"`
	Loading       bool                 `json:"loading,omitempty"`
	IsHost        bool                 `json:"isHost,omitempty"`
	MyTurn        bool                 `json:"myTurn,omitempty"`
}

// GameState is what game:state carries.
type GameState struct {
	Open      *bus.OpenGame  `json:"open,omitempty"`
	Snapshot  *game.Snapshot `json:"snapshot,omitempty"`
	XP        *int           `json:"xp,omitempty"`
	LastError string         `json:"lastError,omitempty"`
}

// Controller is the client being driven. Every method runs on the event
// loop; errors returned are the ones known before any network round trip.
type Controller interface {
	RoomState() RoomState
	GameState() GameState
	SendChat(body string) error
	StartGame(kind string, settings json.RawMessage) error
	GameAction(a game.Action) error
	SessionAction(typ string, payload json.RawMessage) error
	// InviteURL is the link for joining the current room, if there is one.
	InviteURL() (string, bool)
}
