package api

import (
	"context"
	"net/url"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

// CoupleSession fetches the authoritative state of a couple session.
func (c *Client) CoupleSession(ctx context.Context, code string) (domain.Session, error) {
	var out domain.Session
	if err := c.get(ctx, "/sessions/"+url.PathEscape(code), &out); err != nil {
		return domain.Session{}, err
	}
	if out.Code == "" {
		out.Code = code
	}
	return out, nil
}

// SessionAction submits a turn action (pick, skip, finish). The server
// answers through the channel, so the body is ignored.
func (c *Client) SessionAction(ctx context.Context, code, typ string, payload any) error {
	in := struct {
		Type    string `json:"type"`
		Payload any    `json:"payload,omitempty"`
	}{typ, payload}
	return c.post(ctx, "/sessions/"+url.PathEscape(code)+"/action", in, nil)
}
