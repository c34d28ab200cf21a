package game

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

const revealDelay = 900 * time.Millisecond

var errNoQuestions = errors.New("could not fetch trivia")

// maxTransfers bounds how often the buzzer changes hands on one question.
const maxTransfers = 2

type TriviaConfig struct {
	Count       int    `json:"count"`
	SecondsPerQ int    `json:"secondsPerQ"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
}

func DefaultTriviaConfig() TriviaConfig {
	return TriviaConfig{Count: 10, SecondsPerQ: 30, Category: "General", Difficulty: "Medium"}
}

func (c TriviaConfig) Validate() error {
	if c.Count < 1 || c.Count > 50 || c.SecondsPerQ < 5 || c.SecondsPerQ > 300 {
		return ErrInvalidSettings
	}
	return nil
}

type teamTally struct {
	Score   int `json:"score"`
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

type Trivia struct {
	machine
	cfg TriviaConfig
	rng *rand.Rand

	qs        []ai.Question
	idx       int
	loading   bool
	buzzed    *Team
	transfers int
	revealed  *int
	asked     int
	teams     [2]teamTally
}

type TriviaView struct {
	Question  *ai.Question `json:"question,omitempty"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Buzzed    *Team        `json:"buzzedBy"`
	Revealed  *int         `json:"revealed"`
	Transfers int          `json:"transfers"`
	Asked     int          `json:"asked"`
	TeamA     teamTally    `json:"teamA"`
	TeamB     teamTally    `json:"teamB"`
}

func NewTrivia(env Env, cfg TriviaConfig) *Trivia {
	g := &Trivia{machine: newMachine(env, domain.KindTrivia), cfg: cfg, rng: env.rng()}
	g.useClock(g.timeUp)
	return g
}

func (g *Trivia) Start() {
	if !g.begin() {
		return
	}
	if len(g.qs) > 0 {
		g.idx = 0
		g.startQuestion()
	} else {
		g.load()
	}
	g.changed()
}

func (g *Trivia) load() {
	if g.loading {
		return
	}
	g.loading = true
	epoch := g.epoch
	req := ai.TriviaRequest{Category: g.cfg.Category, Difficulty: g.cfg.Difficulty, Count: max(6, g.cfg.Count)}
	g.env.Sched.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		qs, err := g.env.Source.Trivia(ctx, req)
		g.env.Sched.Post(func() { g.loaded(epoch, qs, err) })
	})
}

func (g *Trivia) loaded(epoch int, qs []ai.Question, err error) {
	if epoch != g.epoch || g.closed {
		return
	}
	g.loading = false
	if err == nil && len(qs) == 0 {
		err = errNoQuestions
	}
	if err != nil {
		g.log.Warn().Err(err).Msg("trivia fetch failed")
		g.fetchFailed(err)
		g.after(time.Second, g.load)
		return
	}
	g.fetchFailed(nil)
	g.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	if len(qs) > g.cfg.Count {
		qs = qs[:g.cfg.Count]
	}
	g.qs = qs
	g.idx = 0
	if g.phase == PhaseRunning {
		g.startQuestion()
	}
	g.changed()
}

func (g *Trivia) startQuestion() {
	g.buzzed = nil
	g.revealed = nil
	g.transfers = 0
	g.setPhase(PhaseRunning)
	g.clock.Set(g.cfg.SecondsPerQ)
	g.clock.Start()
}

func (g *Trivia) current() *ai.Question {
	if g.idx < len(g.qs) {
		return &g.qs[g.idx]
	}
	return nil
}

func (g *Trivia) Handle(a Action) error {
	if err := g.guard(); err != nil {
		if err == ErrNotRunning && g.phase == PhaseRoundEnd {
			return ErrInputLocked
		}
		return err
	}
	q := g.current()
	if q == nil || len(g.qs) == 0 {
		return g.reject(ErrContentPending)
	}
	switch a.Type {
	case "buzz":
		if g.buzzed != nil {
			if *g.buzzed == a.Team {
				return nil
			}
			return g.reject(ErrBuzzLocked)
		}
		t := a.Team
		g.buzzed = &t
	case "answer":
		if g.buzzed == nil {
			return g.reject(ErrNotBuzzed)
		}
		if *g.buzzed != a.Team {
			return g.reject(ErrBuzzLocked)
		}
		if a.Index < 0 || a.Index >= len(q.Options) {
			return ErrUnknownAction
		}
		g.answer(a.Team, a.Index == q.CorrectIndex, a.Index)
	case "next":
		g.clock.Stop()
		g.advance()
	default:
		return ErrUnknownAction
	}
	g.changed()
	return nil
}

func (g *Trivia) answer(team Team, correct bool, idx int) {
	t := &g.teams[team]
	if correct {
		t.Score += 10
		t.Correct++
		g.revealed = &idx
		g.reveal()
		return
	}
	t.Score = max(0, t.Score-5)
	t.Wrong++
	if g.transfers >= maxTransfers {
		g.revealed = &idx
		g.reveal()
		return
	}
	g.transfers++
	other := team.Other()
	g.buzzed = &other
}

// reveal freezes the question briefly before moving on.
func (g *Trivia) reveal() {
	g.clock.Stop()
	g.setPhase(PhaseRoundEnd)
	g.after(revealDelay, g.advance)
}

func (g *Trivia) timeUp() {
	g.reveal()
	g.changed()
}

func (g *Trivia) advance() {
	g.asked++
	if g.idx+1 >= len(g.qs) {
		g.Finish()
		return
	}
	g.idx++
	g.startQuestion()
}

// TeamTurn reports which team holds the buzzer.
func (g *Trivia) TeamTurn() (Team, bool) {
	if g.buzzed == nil {
		return 0, false
	}
	return *g.buzzed, true
}

// TriviaXP is max(20, correct*15 + score/2), rounded half up.
func TriviaXP(a, b teamTally) int {
	xp := float64(a.Correct+b.Correct)*15 + float64(a.Score+b.Score)/2
	return max(20, int(jsRound(xp)))
}

func (g *Trivia) Finish() {
	a, b := g.teams[TeamA], g.teams[TeamB]
	g.finish(domain.Result{
		XPEarned: TriviaXP(a, b),
		Rounds:   g.asked,
		Skipped:  0,
		Meta: map[string]any{
			"teamA":          a,
			"teamB":          b,
			"totalQuestions": len(g.qs),
			"secondsPerQ":    g.cfg.SecondsPerQ,
			"category":       g.cfg.Category,
			"difficulty":     g.cfg.Difficulty,
		},
	})
}

func (g *Trivia) Restart() {
	g.reset()
	g.loading = false
	g.idx = 0
	g.buzzed = nil
	g.revealed = nil
	g.transfers = 0
	g.asked = 0
	g.teams = [2]teamTally{}
	g.clock.Set(g.cfg.SecondsPerQ)
	g.changed()
}

func (g *Trivia) Close() { g.close() }

func (g *Trivia) Snapshot() Snapshot {
	s := g.snapshot(TriviaView{
		Question:  g.current(),
		Index:     g.idx,
		Total:     len(g.qs),
		Buzzed:    g.buzzed,
		Revealed:  g.revealed,
		Transfers: g.transfers,
		Asked:     g.asked,
		TeamA:     g.teams[TeamA],
		TeamB:     g.teams[TeamB],
	})
	s.Loading = g.loading
	return s
}
