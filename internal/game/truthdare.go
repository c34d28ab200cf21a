package game

import (
	"context"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/pool"
)

type TruthDareConfig struct {
	Category string `json:"category"`
	Tone     string `json:"tone"`
	Skips    int    `json:"skips"`
}

func DefaultTruthDareConfig() TruthDareConfig {
	return TruthDareConfig{Category: "Romantic", Tone: "PG-13", Skips: 2}
}

func (c TruthDareConfig) Validate() error {
	if c.Skips < 0 {
		return ErrInvalidSettings
	}
	return nil
}

const (
	promptTruth = "truth"
	promptDare  = "dare"
)

type TruthDare struct {
	machine
	cfg    TruthDareConfig
	truths *pool.Pool[string]
	dares  *pool.Pool[string]

	turn       Team
	round      int
	promptKind string
	prompt     string
	skips      int
	completed  int
}

type TruthDareView struct {
	Players   [2]string `json:"players"`
	Turn      Team      `json:"turn"`
	Round     int       `json:"round"`
	Step      string    `json:"step"`
	Kind      string    `json:"promptKind,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Skips     int       `json:"skips"`
	Completed int       `json:"completed"`
}

func NewTruthDare(env Env, cfg TruthDareConfig) *TruthDare {
	g := &TruthDare{machine: newMachine(env, domain.KindTruthDare), cfg: cfg}
	names := env.players()
	fetch := func(truths bool) pool.FetchFunc[string] {
		return func(ctx context.Context, n int) ([]string, error) {
			req := ai.TruthDareRequest{Category: cfg.Category, Tone: cfg.Tone, Names: names[:], Personalize: true}
			if truths {
				req.Truths = n
			} else {
				req.Dares = n
			}
			b, err := env.Source.TruthDare(ctx, req)
			if truths {
				return b.Truths, err
			}
			return b.Dares, err
		}
	}
	opts := pool.Options{Initial: 12, Batch: 12, LowWater: 3}
	opts.Name = "truths"
	g.truths = pool.New(env.Sched, fetch(true), opts)
	opts.Name = "dares"
	g.dares = pool.New(env.Sched, fetch(false), opts)
	g.truths.OnFill = g.changed
	g.dares.OnFill = g.changed
	g.track(g.truths)
	g.track(g.dares)
	g.resetTallies()
	return g
}

func (g *TruthDare) resetTallies() {
	g.turn = TeamA
	g.round = 1
	g.promptKind = ""
	g.prompt = ""
	g.skips = g.cfg.Skips
	g.completed = 0
}

func (g *TruthDare) Start() {
	if !g.begin() {
		return
	}
	g.truths.Prime()
	g.dares.Prime()
	g.changed()
}

func (g *TruthDare) Handle(a Action) error {
	if err := g.guard(); err != nil {
		return err
	}
	switch a.Type {
	case "choose":
		if g.prompt != "" {
			return g.reject(ErrPromptActive)
		}
		return g.draw(a.Kind)
	case "skip":
		if g.prompt == "" {
			return g.reject(ErrNoPrompt)
		}
		if g.skips <= 0 {
			return g.reject(ErrNoSkipsLeft)
		}
		if err := g.draw(g.promptKind); err != nil {
			return err
		}
		g.skips--
	case "complete":
		if g.prompt == "" {
			return g.reject(ErrNoPrompt)
		}
		g.completed++
		g.turn = g.turn.Other()
		g.round++
		g.promptKind, g.prompt = "", ""
	default:
		return ErrUnknownAction
	}
	g.changed()
	return nil
}

func (g *TruthDare) draw(kind string) error {
	var p *pool.Pool[string]
	switch kind {
	case promptTruth:
		p = g.truths
	case promptDare:
		p = g.dares
	default:
		return ErrUnknownAction
	}
	text, ok := p.Draw()
	if !ok {
		return g.reject(ErrContentPending)
	}
	g.promptKind, g.prompt = kind, text
	g.changed()
	return nil
}

func (g *TruthDare) Finish() {
	g.finish(g.result())
}

func (g *TruthDare) result() domain.Result {
	return domain.Result{
		XPEarned: g.completed * 20,
		Rounds:   g.round - 1,
		Skipped:  g.cfg.Skips - g.skips,
		Meta:     map[string]any{"completed": g.completed, "category": g.cfg.Category},
	}
}

func (g *TruthDare) Restart() {
	g.reset()
	g.resetTallies()
	g.changed()
}

func (g *TruthDare) Close() { g.close() }

func (g *TruthDare) Snapshot() Snapshot {
	step := "choose"
	if g.prompt != "" {
		step = "prompt"
	}
	return g.snapshot(TruthDareView{
		Players:   g.env.players(),
		Turn:      g.turn,
		Round:     g.round,
		Step:      step,
		Kind:      g.promptKind,
		Prompt:    g.prompt,
		Skips:     g.skips,
		Completed: g.completed,
	})
}
