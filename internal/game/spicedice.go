package game

import (
	"context"
	"math/rand"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/pool"
)

type Face struct {
	N     int    `json:"n"`
	Label string `json:"label"`
}

var faces = [6]Face{
	{1, "Sweet"},
	{2, "Flirty"},
	{3, "Playful"},
	{4, "Bold"},
	{5, "Creative"},
	{6, "Surprise"},
}

type SpiceDiceConfig struct {
	Category string `json:"category"`
	Skips    int    `json:"skips"`
}

func DefaultSpiceDiceConfig() SpiceDiceConfig {
	return SpiceDiceConfig{Category: "Spicy", Skips: 2}
}

func (c SpiceDiceConfig) Validate() error {
	if c.Skips < 0 {
		return ErrInvalidSettings
	}
	return nil
}

type SpiceDice struct {
	machine
	cfg   SpiceDiceConfig
	dares *pool.Pool[string]
	rng   *rand.Rand

	turn      Team
	face      *Face
	dare      string
	consent   bool
	spins     int
	completed int
	skipsLeft int
	used      []string
	rolls     map[int]int
}

type SpiceDiceView struct {
	Players   [2]string `json:"players"`
	Turn      Team      `json:"turn"`
	Face      *Face     `json:"face,omitempty"`
	Dare      string    `json:"dare,omitempty"`
	Consent   bool      `json:"consent"`
	CanFinish bool      `json:"canComplete"`
	Spins     int       `json:"spins"`
	Completed int       `json:"completed"`
	SkipsLeft int       `json:"skipsLeft"`
}

func NewSpiceDice(env Env, cfg SpiceDiceConfig) *SpiceDice {
	g := &SpiceDice{machine: newMachine(env, domain.KindSpiceDice), cfg: cfg, rng: env.rng()}
	names := env.players()
	fetch := func(ctx context.Context, n int) ([]string, error) {
		b, err := env.Source.TruthDare(ctx, ai.TruthDareRequest{
			Category:    cfg.Category,
			Tone:        "PG-13",
			Dares:       n,
			Names:       names[:],
			Personalize: true,
		})
		return b.Dares, err
	}
	g.dares = pool.New(env.Sched, fetch, pool.Options{Name: "dares", Initial: 18, Batch: 12, LowWater: 3})
	g.dares.OnFill = g.changed
	g.track(g.dares)
	g.resetTallies()
	return g
}

func (g *SpiceDice) resetTallies() {
	g.turn = TeamA
	g.face = nil
	g.dare = ""
	g.consent = false
	g.spins = 0
	g.completed = 0
	g.skipsLeft = g.cfg.Skips
	g.used = nil
	g.rolls = map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0}
}

func (g *SpiceDice) Start() {
	if !g.begin() {
		return
	}
	g.dares.Prime()
	g.changed()
}

func (g *SpiceDice) Handle(a Action) error {
	if err := g.guard(); err != nil {
		return err
	}
	switch a.Type {
	case "roll":
		g.spins++
		f := faces[g.rng.Intn(6)]
		g.rolls[f.N]++
		g.face = &f
		g.nextDare()
	case "consent":
		if g.dare == "" {
			return g.reject(ErrNoPrompt)
		}
		g.consent = a.Value
	case "complete":
		if g.dare == "" {
			return g.reject(ErrNoPrompt)
		}
		if !g.consent {
			return g.reject(ErrConsentRequired)
		}
		g.completed++
		g.used = append(g.used, g.dare)
		g.turn = g.turn.Other()
		g.face = nil
		g.dare = ""
		g.consent = false
	case "skip":
		if g.dare == "" {
			return g.reject(ErrNoPrompt)
		}
		if g.skipsLeft <= 0 {
			return g.reject(ErrNoSkipsLeft)
		}
		d, ok := g.dares.Draw()
		if !ok {
			return g.reject(ErrContentPending)
		}
		g.dare = d
		g.consent = false
		g.skipsLeft--
	default:
		return ErrUnknownAction
	}
	g.changed()
	return nil
}

// nextDare swaps in a fresh dare and re-arms consent.
func (g *SpiceDice) nextDare() bool {
	g.consent = false
	d, ok := g.dares.Draw()
	if !ok {
		g.dare = ""
		g.warn(ErrContentPending.Error())
		return false
	}
	g.dare = d
	return true
}

func (g *SpiceDice) Finish() {
	rolls := make(map[int]int, len(g.rolls))
	for k, v := range g.rolls {
		rolls[k] = v
	}
	g.finish(domain.Result{
		XPEarned: g.completed * 25,
		Rounds:   g.completed,
		Skipped:  g.cfg.Skips - g.skipsLeft,
		Meta: map[string]any{
			"usedDares": append([]string{}, g.used...),
			"rolls":     rolls,
		},
	})
}

func (g *SpiceDice) Restart() {
	g.reset()
	g.resetTallies()
	g.changed()
}

func (g *SpiceDice) Close() { g.close() }

func (g *SpiceDice) Snapshot() Snapshot {
	return g.snapshot(SpiceDiceView{
		Players:   g.env.players(),
		Turn:      g.turn,
		Face:      g.face,
		Dare:      g.dare,
		Consent:   g.consent,
		CanFinish: g.dare != "" && g.consent,
		Spins:     g.spins,
		Completed: g.completed,
		SkipsLeft: g.skipsLeft,
	})
}
