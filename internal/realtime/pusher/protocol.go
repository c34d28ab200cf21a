package pusher

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/PrinceLee1/lovey-dovey/internal/realtime"
)

const (
	evEstablished   = "pusher:connection_established"
	evError         = "pusher:error"
	evPing          = "pusher:ping"
	evPong          = "pusher:pong"
	evSubscribe     = "pusher:subscribe"
	evUnsubscribe   = "pusher:unsubscribe"
	evSubscribed    = "pusher_internal:subscription_succeeded"
	evSubscribeErr  = "pusher:subscription_error"
	evMemberAdded   = "pusher_internal:member_added"
	evMemberRemoved = "pusher_internal:member_removed"
)

// frame is a protocol 7 message. Server-sent data is usually a JSON string
// holding JSON; outgoing data is a plain object.
type frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// payload returns the data with one level of string encoding removed.
func (f frame) payload() json.RawMessage {
	if len(f.Data) > 0 && f.Data[0] == '"' {
		var s string
		if err := json.Unmarshal(f.Data, &s); err == nil {
			return json.RawMessage(s)
		}
	}
	return f.Data
}

type established struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

type subscribeData struct {
	Channel     string `json:"channel"`
	Auth        string `json:"auth,omitempty"`
	ChannelData string `json:"channel_data,omitempty"`
}

type presenceData struct {
	Presence struct {
		IDs   []json.RawMessage          `json:"ids"`
		Hash  map[string]json.RawMessage `json:"hash"`
		Count int                        `json:"count"`
	} `json:"presence"`
}

type memberData struct {
	UserID   json.RawMessage `json:"user_id"`
	UserInfo json.RawMessage `json:"user_info,omitempty"`
}

// idString accepts a user id sent as a number or a string.
func idString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("user id %s: %w", raw, err)
	}
	return n.String(), nil
}

// hereFrame turns a subscription_succeeded payload into the member list,
// ordered as the server listed the ids.
func hereFrame(data json.RawMessage) (realtime.Frame, error) {
	var pd presenceData
	if err := json.Unmarshal(data, &pd); err != nil {
		return realtime.Frame{}, fmt.Errorf("decode presence: %w", err)
	}
	seen := make(map[string]bool, len(pd.Presence.Hash))
	var members []realtime.PresenceMember
	for _, raw := range pd.Presence.IDs {
		id, err := idString(raw)
		if err != nil {
			return realtime.Frame{}, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, realtime.PresenceMember{UserID: id, Info: pd.Presence.Hash[id]})
	}
	var rest []string
	for id := range pd.Presence.Hash {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		a, errA := strconv.ParseInt(rest[i], 10, 64)
		b, errB := strconv.ParseInt(rest[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return rest[i] < rest[j]
	})
	for _, id := range rest {
		members = append(members, realtime.PresenceMember{UserID: id, Info: pd.Presence.Hash[id]})
	}
	if members == nil {
		members = []realtime.PresenceMember{}
	}
	b, err := json.Marshal(members)
	if err != nil {
		return realtime.Frame{}, err
	}
	return realtime.Frame{Event: realtime.FrameHere, Data: b}, nil
}

func memberFrame(name string, data json.RawMessage) (realtime.Frame, error) {
	var md memberData
	if err := json.Unmarshal(data, &md); err != nil {
		return realtime.Frame{}, fmt.Errorf("decode member: %w", err)
	}
	id, err := idString(md.UserID)
	if err != nil {
		return realtime.Frame{}, err
	}
	b, err := json.Marshal(realtime.PresenceMember{UserID: id, Info: md.UserInfo})
	if err != nil {
		return realtime.Frame{}, err
	}
	return realtime.Frame{Event: name, Data: b}, nil
}

func message(text string) json.RawMessage {
	b, _ := json.Marshal(text)
	return b
}
