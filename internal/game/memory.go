package game

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

const (
	matchDelay    = 450 * time.Millisecond
	mismatchDelay = 800 * time.Millisecond
)

var defaultFavorites = []string{
	"🍕", "🎬", "🎧", "🌮", "☕️", "🎮", "📚", "🌈", "🧋", "🍣",
	"🐶", "✈️", "🍫", "🎵", "🏖️", "🌙", "🌟", "🏀", "🍓", "🧩",
}

type MemoryConfig struct {
	Size int `json:"size"`
}

func DefaultMemoryConfig() MemoryConfig { return MemoryConfig{Size: 4} }

func (c MemoryConfig) Validate() error {
	if c.Size != 4 && c.Size != 6 {
		return ErrInvalidSettings
	}
	return nil
}

type MemoryCard struct {
	ID      string `json:"id"`
	Value   string `json:"value,omitempty"`
	Owner   *Team  `json:"owner,omitempty"`
	Matched bool   `json:"matched"`
	Up      bool   `json:"up"`
}

type Memory struct {
	machine
	size  int
	pairs int
	rng   *rand.Rand

	favs [2][]string

	deck      []MemoryCard
	flipped   []int
	resolving bool
	moves     int
	matches   int
	turn      Team

	startedAt    time.Time
	pausedBefore time.Duration
	finalMs      int64
}

type MemoryView struct {
	Players   [2]string    `json:"players"`
	Size      int          `json:"size"`
	Favorites [2][]string  `json:"favorites"`
	Deck      []MemoryCard `json:"deck"`
	Moves     int          `json:"moves"`
	Matches   int          `json:"matches"`
	Pairs     int          `json:"pairs"`
	Turn      Team         `json:"turn"`
	ElapsedMs int64        `json:"elapsedMs"`
}

func NewMemory(env Env, cfg MemoryConfig) *Memory {
	return &Memory{
		machine: newMachine(env, domain.KindMemoryMatch),
		size:    cfg.Size,
		pairs:   cfg.Size * cfg.Size / 2,
		rng:     env.rng(),
	}
}

func (g *Memory) Start() {
	if !g.begin() {
		return
	}
	g.buildDeck()
	g.changed()
}

func (g *Memory) Handle(a Action) error {
	switch a.Type {
	case "favorite", "unfavorite", "autofill":
		if g.closed {
			return ErrClosed
		}
		if g.phase != PhaseIdle {
			return ErrSetupOnly
		}
		side := a.Side
		if side != TeamA && side != TeamB {
			return ErrUnknownAction
		}
		switch a.Type {
		case "favorite":
			g.addFavorites(side, a.Text)
		case "unfavorite":
			v := strings.TrimSpace(a.Text)
			g.favs[side] = slices.DeleteFunc(g.favs[side], func(x string) bool { return x == v })
		case "autofill":
			g.addFavorites(side, g.pick(defaultFavorites, 6)...)
		}
		g.changed()
		return nil
	case "flip":
		if err := g.guard(); err != nil {
			return err
		}
		return g.flip(a.Index)
	}
	return ErrUnknownAction
}

func (g *Memory) addFavorites(side Team, items ...string) {
	for _, it := range items {
		v := strings.TrimSpace(it)
		if v == "" || slices.Contains(g.favs[side], v) || len(g.favs[side]) >= g.pairs {
			continue
		}
		g.favs[side] = append(g.favs[side], v)
	}
}

func (g *Memory) pick(from []string, n int) []string {
	c := slices.Clone(from)
	g.rng.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
	if n < len(c) {
		c = c[:n]
	}
	return c
}

// buildDeck merges both partners' favorites, tops them up from the
// defaults and lays every value out twice in random order.
func (g *Memory) buildDeck() {
	type item struct {
		value string
		owner *Team
	}
	var items []item
	seen := map[string]bool{}
	for side := TeamA; side <= TeamB; side++ {
		owner := side
		for _, v := range g.favs[side] {
			if seen[v] {
				continue
			}
			seen[v] = true
			items = append(items, item{v, &owner})
		}
	}
	if len(items) > g.pairs {
		items = items[:g.pairs]
	}
	if need := g.pairs - len(items); need > 0 {
		var spare []string
		for _, v := range defaultFavorites {
			if !seen[v] {
				spare = append(spare, v)
			}
		}
		for _, v := range g.pick(spare, need) {
			items = append(items, item{value: v})
		}
	}

	deck := make([]MemoryCard, 0, 2*len(items))
	for _, it := range items {
		for i := 0; i < 2; i++ {
			deck = append(deck, MemoryCard{ID: uuid.NewString(), Value: it.value, Owner: it.owner})
		}
	}
	g.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	g.deck = deck
	g.pairs = len(items)
	g.flipped = nil
	g.resolving = false
	g.moves, g.matches = 0, 0
	g.turn = TeamA
	g.startedAt = time.Time{}
	g.finalMs = 0
}

func (g *Memory) flip(idx int) error {
	if idx < 0 || idx >= len(g.deck) {
		return ErrBadCard
	}
	if g.resolving {
		return ErrInputLocked
	}
	c := &g.deck[idx]
	if c.Matched || c.Up {
		return ErrBadCard
	}
	if g.startedAt.IsZero() {
		g.startedAt = g.env.Sched.Now()
		g.pausedBefore = g.pausedFor
	}
	c.Up = true
	g.flipped = append(g.flipped, idx)
	if len(g.flipped) < 2 {
		g.changed()
		return nil
	}

	g.moves++
	g.resolving = true
	a, b := g.flipped[0], g.flipped[1]
	if g.deck[a].Value == g.deck[b].Value {
		g.after(matchDelay, func() {
			g.deck[a].Matched = true
			g.deck[b].Matched = true
			g.matches++
			g.settle()
			if g.matches == g.pairs {
				g.Finish()
			}
		})
	} else {
		g.after(mismatchDelay, func() {
			g.deck[a].Up = false
			g.deck[b].Up = false
			g.turn = g.turn.Other()
			g.settle()
		})
	}
	g.changed()
	return nil
}

func (g *Memory) settle() {
	g.flipped = nil
	g.resolving = false
}

func (g *Memory) elapsedMs() int64 {
	if g.phase == PhaseFinished || g.startedAt.IsZero() {
		return g.finalMs
	}
	return (g.played(g.startedAt) + g.pausedBefore).Milliseconds()
}

// MemoryXP is the client-side estimate. The par time grows with the board
// and the bonus has no upper bound.
func MemoryXP(pairs, moves int, ms int64) (xp int, accuracy float64) {
	par := float64(pairs) * 20 * 60000
	speedBonus := math.Max(0, jsRound((par-float64(ms))/60000))
	accuracy = math.Max(0.3, math.Min(1, float64(pairs)/float64(max(1, moves))))
	return int(jsRound(float64(pairs)*15*accuracy + speedBonus)), accuracy
}

// jsRound rounds half up, matching the numbers the server reproduces.
func jsRound(x float64) float64 { return math.Floor(x + 0.5) }

func (g *Memory) Finish() {
	if g.latch.Fired() {
		return
	}
	ms := g.elapsedMs()
	xp, acc := MemoryXP(g.matches, g.moves, ms)
	g.finalMs = ms
	g.finish(domain.Result{
		XPEarned: xp,
		Rounds:   g.moves,
		Skipped:  0,
		Meta: map[string]any{
			"boardSize": g.boardLabel(),
			"pairs":     g.matches,
			"timeMs":    ms,
			"timeNice":  niceDuration(ms),
			"moves":     g.moves,
			"accuracy":  acc,
		},
	})
}

func (g *Memory) boardLabel() string { return fmt.Sprintf("%dx%d", g.size, g.size) }

func niceDuration(ms int64) string {
	return fmt.Sprintf("%d:%02d", ms/60000, (ms%60000)/1000)
}

func (g *Memory) Restart() {
	g.reset()
	g.deck = nil
	g.flipped = nil
	g.resolving = false
	g.moves, g.matches = 0, 0
	g.pairs = g.size * g.size / 2
	g.turn = TeamA
	g.startedAt = time.Time{}
	g.finalMs = 0
	g.changed()
}

func (g *Memory) Close() { g.close() }

func (g *Memory) Snapshot() Snapshot {
	deck := make([]MemoryCard, len(g.deck))
	for i, c := range g.deck {
		if !c.Up && !c.Matched {
			c.Value = ""
			c.Owner = nil
		}
		deck[i] = c
	}
	return g.snapshot(MemoryView{
		Players:   g.env.players(),
		Size:      g.size,
		Favorites: [2][]string{slices.Clone(g.favs[0]), slices.Clone(g.favs[1])},
		Deck:      deck,
		Moves:     g.moves,
		Matches:   g.matches,
		Pairs:     g.pairs,
		Turn:      g.turn,
		ElapsedMs: g.elapsedMs(),
	})
}
