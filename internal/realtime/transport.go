package realtime

import (
	"context"
	"encoding/json"
)

// Frame names a transport emits besides application events.
const (
	FrameHere         = "presence:here"
	FrameJoining      = "presence:joining"
	FrameLeaving      = "presence:leaving"
	FrameLost         = "connection:lost"
	FrameReconnected  = "connection:reconnected"
	FrameSubscribeErr = "subscription:error"
)

// Frame is one raw event on a subscribed channel.
type Frame struct {
	Event string
	Data  json.RawMessage
}

// PresenceMember is the payload of the presence frames. FrameHere carries
// a JSON array of them.
type PresenceMember struct {
	UserID string          `json:"user_id"`
	Info   json.RawMessage `json:"user_info,omitempty"`
}

type Handler func(Frame)

type Subscription interface {
	Unsubscribe()
}

// Transport is a presence-capable pub/sub connection. Handlers may be
// called from any goroutine but never concurrently for one subscription.
type Transport interface {
	Subscribe(ctx context.Context, channel string, h Handler) (Subscription, error)
}
