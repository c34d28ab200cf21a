package game

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

// NotEmojiNotice is shown when a message contains anything but emoji.
const NotEmojiNotice = "Only emojis allowed. No letters or numbers!"

type EmojiChatConfig struct {
	Minutes int `json:"minutes"`
}

func DefaultEmojiChatConfig() EmojiChatConfig { return EmojiChatConfig{Minutes: 5} }

func (c EmojiChatConfig) Validate() error {
	if c.Minutes < 0 || c.Minutes > 60 {
		return ErrInvalidSettings
	}
	return nil
}

type EmojiMessage struct {
	ID   string    `json:"id"`
	From Team      `json:"from"`
	Text string    `json:"text"`
	At   time.Time `json:"t"`
}

type EmojiChat struct {
	machine
	seconds  int
	who      Team
	messages []EmojiMessage
}

type EmojiChatView struct {
	Players  [2]string      `json:"players"`
	Who      Team           `json:"who"`
	Messages []EmojiMessage `json:"messages"`
	Total    int            `json:"totalSeconds"`
}

func NewEmojiChat(env Env, cfg EmojiChatConfig) *EmojiChat {
	g := &EmojiChat{machine: newMachine(env, domain.KindEmojiChat), seconds: max(1, cfg.Minutes) * 60}
	g.useClock(g.Finish)
	g.clock.Set(g.seconds)
	return g
}

func (g *EmojiChat) Start() {
	if !g.begin() {
		return
	}
	g.clock.Start()
	g.changed()
}

func (g *EmojiChat) Handle(a Action) error {
	if err := g.guard(); err != nil {
		return err
	}
	if a.Type != "send" {
		return ErrUnknownAction
	}
	if !IsEmojiOnly(a.Text) {
		g.warn(NotEmojiNotice)
		return ErrNotEmoji
	}
	g.messages = append(g.messages, EmojiMessage{
		ID:   uuid.NewString(),
		From: g.who,
		Text: strings.TrimSpace(a.Text),
		At:   g.env.Sched.Now(),
	})
	g.who = g.who.Other()
	g.changed()
	return nil
}

func (g *EmojiChat) Finish() {
	g.finish(g.result())
}

func (g *EmojiChat) result() domain.Result {
	n := len(g.messages)
	counts := map[string]int{}
	var order []string
	for _, m := range g.messages {
		for _, e := range emojiRunes(m.Text) {
			if counts[e] == 0 {
				order = append(order, e)
			}
			counts[e]++
		}
	}
	top, best := "", 0
	for _, e := range order {
		if counts[e] > best {
			top, best = e, counts[e]
		}
	}
	elapsed := g.seconds - g.clock.Remaining()
	return domain.Result{
		XPEarned: max(10, n*5),
		Rounds:   n,
		Skipped:  0,
		Meta: map[string]any{
			"totalMessages":    n,
			"uniqueEmojiCount": len(order),
			"topEmoji":         top,
			"durationMs":       elapsed * 1000,
		},
	}
}

func (g *EmojiChat) Restart() {
	g.reset()
	g.messages = nil
	g.who = TeamA
	g.clock.Set(g.seconds)
	g.changed()
}

func (g *EmojiChat) Close() { g.close() }

func (g *EmojiChat) Snapshot() Snapshot {
	return g.snapshot(EmojiChatView{
		Players:  g.env.players(),
		Who:      g.who,
		Messages: append([]EmojiMessage(nil), g.messages...),
		Total:    g.seconds,
	})
}
