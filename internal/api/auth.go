package api

import (
	"context"
	"net/http"
)

// ChannelAuth is the signature the realtime service expects when joining a
// presence channel.
type ChannelAuth struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// AuthorizeChannel signs a subscription for socketID on channel.
func (c *Client) AuthorizeChannel(ctx context.Context, socketID, channel string) (ChannelAuth, error) {
	in := map[string]string{"channel_name": channel, "socket_id": socketID}
	h := http.Header{}
	h.Set("X-Socket-Id", socketID)
	h.Set("X-Requested-With", "XMLHttpRequest")
	var out ChannelAuth
	if err := c.do(ctx, http.MethodPost, "/broadcasting/auth", in, &out, h); err != nil {
		return ChannelAuth{}, err
	}
	return out, nil
}
