package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

func lobbyPath(code string, rest ...string) string {
	p := "/lobbies/" + url.PathEscape(code)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (c *Client) Lobby(ctx context.Context, code string) (domain.Lobby, error) {
	var out struct {
		Lobby domain.Lobby `json:"lobby"`
	}
	if err := c.get(ctx, lobbyPath(code), &out); err != nil {
		return domain.Lobby{}, err
	}
	return out.Lobby, nil
}

func (c *Client) Messages(ctx context.Context, code string) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	if err := c.get(ctx, lobbyPath(code, "messages"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Sessions(ctx context.Context, code string) ([]domain.Session, error) {
	var out []domain.Session
	if err := c.get(ctx, lobbyPath(code, "sessions"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, code, body string) (domain.ChatMessage, error) {
	var out struct {
		Message domain.ChatMessage `json:"message"`
	}
	if err := c.post(ctx, lobbyPath(code, "messages"), map[string]string{"body": body}, &out); err != nil {
		return domain.ChatMessage{}, err
	}
	return out.Message, nil
}

func (c *Client) StartGame(ctx context.Context, code string, kind domain.Kind, settings json.RawMessage) (domain.Session, error) {
	in := struct {
		Kind     domain.Kind     `json:"kind"`
		Settings json.RawMessage `json:"settings,omitempty"`
	}{kind, settings}
	var out struct {
		Session domain.Session `json:"session"`
	}
	if err := c.post(ctx, lobbyPath(code, "games", "start"), in, &out); err != nil {
		return domain.Session{}, err
	}
	return out.Session, nil
}

func (c *Client) EndGame(ctx context.Context, code string, sessionID int64, res domain.Result) error {
	path := lobbyPath(code, "games", fmt.Sprint(sessionID), "end")
	return c.post(ctx, path, map[string]any{"result": res}, nil)
}

func (c *Client) LeaveLobby(ctx context.Context, code string) error {
	return c.post(ctx, lobbyPath(code, "leave"), nil, nil)
}
