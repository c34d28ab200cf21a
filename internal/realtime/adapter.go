// Package realtime turns presence channel traffic into typed room events
// delivered on the event loop.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
)

const DefaultNamespace = `App\Events`

func LobbyChannel(code string) string  { return "presence-lobby." + code }
func CoupleChannel(code string) string { return "presence-couple-session." + code }

type Adapter struct {
	t         Transport
	sched     eventloop.Scheduler
	namespace string
}

func NewAdapter(t Transport, sched eventloop.Scheduler, namespace string) *Adapter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Adapter{t: t, sched: sched, namespace: namespace}
}

// Handle is a joined channel. Leave is safe to call more than once; no
// event is delivered after it returns.
type Handle struct {
	Channel string

	mu   sync.Mutex
	sub  Subscription
	left bool
}

func (h *Handle) Leave() {
	h.mu.Lock()
	if h.left {
		h.mu.Unlock()
		return
	}
	h.left = true
	sub := h.sub
	h.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
	log.Debug().Str("channel", h.Channel).Msg("left channel")
}

func (h *Handle) gone() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.left
}

// Join subscribes to channel and calls fn on the loop for every event
// that decodes. Unknown events are dropped.
func (a *Adapter) Join(ctx context.Context, channel string, fn func(Event)) (*Handle, error) {
	h := &Handle{Channel: channel}
	sub, err := a.t.Subscribe(ctx, channel, func(f Frame) {
		ev, err := a.Decode(f)
		if err != nil {
			log.Debug().Err(err).Str("channel", channel).Str("event", f.Event).Msg("dropping channel event")
			return
		}
		a.sched.Post(func() {
			if h.gone() {
				return
			}
			fn(ev)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", channel, err)
	}
	h.mu.Lock()
	h.sub = sub
	left := h.left
	h.mu.Unlock()
	if left {
		sub.Unsubscribe()
	}
	log.Info().Str("channel", channel).Msg("joined channel")
	return h, nil
}

var errUnknownEvent = errors.New("unknown event")

// Decode maps a frame to its typed event.
func (a *Adapter) Decode(f Frame) (Event, error) {
	switch f.Event {
	case FrameHere:
		var raw []PresenceMember
		if err := json.Unmarshal(f.Data, &raw); err != nil {
			return nil, fmt.Errorf("decode presence: %w", err)
		}
		members := make([]domain.Member, 0, len(raw))
		for _, pm := range raw {
			m, err := pm.member()
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
		return PresenceSnapshot{Members: members}, nil
	case FrameJoining, FrameLeaving:
		var pm PresenceMember
		if err := json.Unmarshal(f.Data, &pm); err != nil {
			return nil, fmt.Errorf("decode presence member: %w", err)
		}
		m, err := pm.member()
		if err != nil {
			return nil, err
		}
		if f.Event == FrameJoining {
			return MemberJoined{Member: m}, nil
		}
		return MemberLeft{Member: m}, nil
	case FrameLost, FrameSubscribeErr:
		var msg string
		_ = json.Unmarshal(f.Data, &msg)
		if msg == "" {
			msg = f.Event
		}
		return ConnectionLost{Err: errors.New(msg)}, nil
	case FrameReconnected:
		return Reconnected{}, nil
	}

	name := strings.TrimPrefix(f.Event, a.namespace+`\`)
	name = strings.TrimPrefix(name, ".")
	switch name {
	case "LobbyMessageCreated":
		var msg domain.ChatMessage
		if err := json.Unmarshal(unwrap(f.Data, "message"), &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return MessageCreated{Message: msg}, nil
	case "LobbyGameStarted":
		var e GameStarted
		if err := json.Unmarshal(f.Data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return e, nil
	case "LobbyGameEnded":
		var e GameEnded
		if err := json.Unmarshal(f.Data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return e, nil
	case "session.created", "session.updated":
		p, err := domain.DecodePatch(f.Data)
		if err != nil {
			return nil, err
		}
		return SessionPatched{Created: name == "session.created", Patch: p}, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownEvent, f.Event)
}

// unwrap returns data[key] when data is an object whose only payload sits
// under key.
func unwrap(data json.RawMessage, key string) json.RawMessage {
	var outer map[string]json.RawMessage
	if json.Unmarshal(data, &outer) != nil {
		return data
	}
	if inner, ok := outer[key]; ok && len(outer) == 1 && bytes.HasPrefix(bytes.TrimSpace(inner), []byte("{")) {
		return inner
	}
	return data
}

func (pm PresenceMember) member() (domain.Member, error) {
	var m domain.Member
	if len(pm.Info) > 0 && string(pm.Info) != "null" {
		if err := json.Unmarshal(pm.Info, &m); err != nil {
			return m, fmt.Errorf("decode member info: %w", err)
		}
	}
	if m.ID == 0 && pm.UserID != "" {
		id, err := strconv.ParseInt(pm.UserID, 10, 64)
		if err != nil {
			return m, fmt.Errorf("decode member id %q: %w", pm.UserID, err)
		}
		m.ID = id
	}
	return m, nil
}
