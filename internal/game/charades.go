package game

import (
	"context"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/pool"
)

type CharadesConfig struct {
	SecondsPerRound int    `json:"secondsPerRound"`
	RoundsPerTeam   int    `json:"roundsPerTeam"`
	Category        string `json:"category"`
	Difficulty      string `json:"difficulty"`
	Skips           int    `json:"skips"`
}

func DefaultCharadesConfig() CharadesConfig {
	return CharadesConfig{SecondsPerRound: 60, RoundsPerTeam: 3, Category: "General", Difficulty: "Easy", Skips: 2}
}

func (c CharadesConfig) Validate() error {
	if c.SecondsPerRound < 10 || c.SecondsPerRound > 600 || c.RoundsPerTeam < 1 || c.RoundsPerTeam > 20 || c.Skips < 0 {
		return ErrInvalidSettings
	}
	return nil
}

type Charades struct {
	machine
	cfg   CharadesConfig
	cards *pool.Pool[ai.Card]

	round        int
	team         Team
	revealed     bool
	skipsLeft    int
	current      *ai.Card
	scores       [2]int
	totalCorrect int
	totalSkips   int
	used         []string
}

type CharadesView struct {
	Round       int      `json:"round"`
	TotalRounds int      `json:"totalRounds"`
	Team        Team     `json:"team"`
	Revealed    bool     `json:"revealed"`
	SkipsLeft   int      `json:"skipsLeft"`
	HasCard     bool     `json:"hasCard"`
	Card        *ai.Card `json:"card,omitempty"`
	ScoreA      int      `json:"scoreA"`
	ScoreB      int      `json:"scoreB"`
}

func NewCharades(env Env, cfg CharadesConfig) *Charades {
	g := &Charades{machine: newMachine(env, domain.KindCharades), cfg: cfg}
	names := env.players()
	fetch := func(ctx context.Context, n int) ([]ai.Card, error) {
		return env.Source.Charades(ctx, ai.CharadesRequest{
			Category:   cfg.Category,
			Difficulty: cfg.Difficulty,
			Count:      n,
			TabooWords: 2,
			Names:      names[:],
		})
	}
	g.cards = pool.New(env.Sched, fetch, pool.Options{Name: "charades", Initial: 24, Batch: 16, LowWater: 4})
	g.cards.OnFill = func() {
		g.retryCard()
		g.changed()
	}
	g.track(g.cards)
	g.useClock(g.roundOver)
	g.clock.OnTick = func(remaining int) {
		// the round is over at zero; a card drawn now would never be shown
		if remaining > 0 {
			g.retryCard()
		}
		g.changed()
	}
	g.resetTallies()
	return g
}

func (g *Charades) totalRounds() int { return g.cfg.RoundsPerTeam * 2 }

func (g *Charades) resetTallies() {
	g.round = 1
	g.team = TeamA
	g.revealed = false
	g.skipsLeft = g.cfg.Skips
	g.current = nil
	g.scores = [2]int{}
	g.totalCorrect = 0
	g.totalSkips = 0
	g.used = nil
	g.clock.Set(g.cfg.SecondsPerRound)
}

// Start opens the match; each round then begins with start_round once the
// acting team is ready.
func (g *Charades) Start() {
	if !g.begin() {
		return
	}
	g.cards.Prime()
	g.setPhase(PhaseRoundEnd)
	g.changed()
}

func (g *Charades) Handle(a Action) error {
	if a.Type == "start_round" {
		if g.closed {
			return ErrClosed
		}
		if g.phase != PhaseRoundEnd {
			return ErrNotRunning
		}
		g.startRound()
		g.changed()
		return nil
	}
	if err := g.guard(); err != nil {
		return err
	}
	switch a.Type {
	case "reveal":
		if g.current == nil {
			return g.reject(ErrNoPrompt)
		}
		g.revealed = !g.revealed
	case "guessed":
		if g.current == nil {
			return g.reject(ErrNoPrompt)
		}
		if !g.revealed {
			return g.reject(ErrCardHidden)
		}
		g.scores[g.team]++
		g.totalCorrect++
		g.used = append(g.used, g.current.Title)
		g.nextCard()
	case "skip":
		if g.skipsLeft <= 0 {
			return g.reject(ErrNoSkipsLeft)
		}
		g.skipsLeft--
		g.totalSkips++
		g.nextCard()
	default:
		return ErrUnknownAction
	}
	g.changed()
	return nil
}

func (g *Charades) startRound() {
	g.skipsLeft = g.cfg.Skips
	g.setPhase(PhaseRunning)
	g.nextCard()
	g.clock.Set(g.cfg.SecondsPerRound)
	g.clock.Start()
}

func (g *Charades) nextCard() {
	g.revealed = false
	g.current = nil
	if c, ok := g.cards.Draw(); ok {
		g.current = &c
	}
}

// retryCard fills an empty card slot while a round is live.
func (g *Charades) retryCard() {
	if g.phase == PhaseRunning && g.current == nil {
		g.nextCard()
	}
}

func (g *Charades) roundOver() {
	g.revealed = false
	g.current = nil
	if g.round >= g.totalRounds() {
		g.Finish()
		return
	}
	g.team = g.team.Other()
	g.round++
	g.skipsLeft = g.cfg.Skips
	g.clock.Set(g.cfg.SecondsPerRound)
	g.setPhase(PhaseRoundEnd)
	g.changed()
}

// TeamTurn reports the acting team.
func (g *Charades) TeamTurn() (Team, bool) { return g.team, g.phase == PhaseRunning }

func (g *Charades) Finish() {
	g.finish(domain.Result{
		XPEarned: max(20, g.totalCorrect*12),
		Rounds:   g.round,
		Skipped:  g.totalSkips,
		Meta: map[string]any{
			"teamA":           map[string]int{"score": g.scores[TeamA]},
			"teamB":           map[string]int{"score": g.scores[TeamB]},
			"secondsPerRound": g.cfg.SecondsPerRound,
			"roundsPerTeam":   g.cfg.RoundsPerTeam,
			"usedTitles":      append([]string{}, g.used...),
			"category":        g.cfg.Category,
			"difficulty":      g.cfg.Difficulty,
		},
	})
}

func (g *Charades) Restart() {
	g.reset()
	g.resetTallies()
	g.changed()
}

func (g *Charades) Close() { g.close() }

func (g *Charades) Snapshot() Snapshot {
	var card *ai.Card
	if g.revealed {
		card = g.current
	}
	return g.snapshot(CharadesView{
		Round:       g.round,
		TotalRounds: g.totalRounds(),
		Team:        g.team,
		Revealed:    g.revealed,
		SkipsLeft:   g.skipsLeft,
		HasCard:     g.current != nil,
		Card:        card,
		ScoreA:      g.scores[TeamA],
		ScoreB:      g.scores[TeamB],
	})
}
