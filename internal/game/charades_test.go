package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charadesView(g *Charades) CharadesView { return g.Snapshot().State.(CharadesView) }

func TestCharadesCardStaysHiddenUntilRevealed(t *testing.T) {
	src := &fakeSource{}
	env, h := newHarness(src)
	g := NewCharades(env, DefaultCharadesConfig())
	g.Start()
	h.clock.Drain()
	require.Equal(t, PhaseRoundEnd, g.Phase())
	assert.Equal(t, 24, g.cards.Len())

	mustHandle(t, g, Action{Type: "start_round"})
	v := charadesView(g)
	assert.True(t, v.HasCard)
	assert.Nil(t, v.Card)
	assert.ErrorIs(t, g.Handle(Action{Type: "guessed"}), ErrCardHidden)

	mustHandle(t, g, Action{Type: "reveal"})
	v = charadesView(g)
	require.NotNil(t, v.Card)
	assert.Equal(t, "card-1", v.Card.Title)

	mustHandle(t, g, Action{Type: "guessed"})
	v = charadesView(g)
	assert.Equal(t, 1, v.ScoreA)
	assert.False(t, v.Revealed)
	assert.Equal(t, "card-2", g.current.Title)
}

func TestCharadesSkipsAreLimitedPerRound(t *testing.T) {
	env, h := newHarness(&fakeSource{})
	g := NewCharades(env, DefaultCharadesConfig())
	g.Start()
	h.clock.Drain()
	mustHandle(t, g, Action{Type: "start_round"})

	mustHandle(t, g, Action{Type: "skip"})
	mustHandle(t, g, Action{Type: "skip"})
	assert.ErrorIs(t, g.Handle(Action{Type: "skip"}), ErrNoSkipsLeft)
	assert.Equal(t, "card-3", g.current.Title)

	h.clock.Advance(60 * time.Second)
	mustHandle(t, g, Action{Type: "start_round"})
	assert.Equal(t, 2, charadesView(g).SkipsLeft)
}

func TestCharadesRoundsAlternateTeamsThenFinish(t *testing.T) {
	cfg := DefaultCharadesConfig()
	cfg.RoundsPerTeam = 1
	cfg.SecondsPerRound = 10
	env, h := newHarness(&fakeSource{})
	g := NewCharades(env, cfg)
	g.Start()
	h.clock.Drain()

	mustHandle(t, g, Action{Type: "start_round"})
	turn, live := g.TeamTurn()
	assert.True(t, live)
	assert.Equal(t, TeamA, turn)
	mustHandle(t, g, Action{Type: "reveal"})
	mustHandle(t, g, Action{Type: "guessed"})

	h.clock.Advance(10 * time.Second)
	assert.Equal(t, PhaseRoundEnd, g.Phase())
	assert.ErrorIs(t, g.Handle(Action{Type: "reveal"}), ErrNotRunning)
	turn, live = g.TeamTurn()
	assert.False(t, live)
	assert.Equal(t, TeamB, turn)

	mustHandle(t, g, Action{Type: "start_round"})
	mustHandle(t, g, Action{Type: "skip"})
	h.clock.Advance(10 * time.Second)

	r := h.only(t)
	assert.Equal(t, PhaseFinished, g.Phase())
	assert.Equal(t, 20, r.XPEarned)
	assert.Equal(t, 2, r.Rounds)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, map[string]int{"score": 1}, r.Meta["teamA"])
	assert.Equal(t, []string{"card-1"}, r.Meta["usedTitles"])
}

func TestCharadesMissingCardRetriedOnTick(t *testing.T) {
	src := &fakeSource{cardsErr: errors.New("generator offline")}
	env, h := newHarness(src)
	g := NewCharades(env, DefaultCharadesConfig())
	g.Start()
	h.clock.Drain()
	assert.Equal(t, "generator offline", g.Snapshot().Error)

	mustHandle(t, g, Action{Type: "start_round"})
	h.clock.Drain()
	assert.False(t, charadesView(g).HasCard)
	assert.ErrorIs(t, g.Handle(Action{Type: "reveal"}), ErrNoPrompt)

	src.cardsErr = nil
	h.clock.Advance(time.Second)
	assert.True(t, charadesView(g).HasCard)
	assert.Empty(t, g.Snapshot().Error)
	assert.Equal(t, 59, g.Snapshot().Remaining)
}

func TestCharadesLastTickDrawsNoCard(t *testing.T) {
	src := &fakeSource{cardsErr: errors.New("generator offline")}
	env, h := newHarness(src)
	cfg := DefaultCharadesConfig()
	cfg.SecondsPerRound = 10
	g := NewCharades(env, cfg)
	g.Start()
	h.clock.Drain()
	mustHandle(t, g, Action{Type: "start_round"})
	h.clock.Advance(9 * time.Second)
	require.False(t, charadesView(g).HasCard)
	require.Equal(t, 1, g.Snapshot().Remaining)
	before := src.calls["charades"]

	src.cardsErr = nil
	h.clock.Advance(time.Second)
	assert.Equal(t, PhaseRoundEnd, g.Phase())
	assert.Equal(t, before, src.calls["charades"])
	assert.Zero(t, src.cards, "no card is spent on a round that just ended")
}

func TestCharadesCloseDropsLateCards(t *testing.T) {
	env, h := newHarness(&fakeSource{})
	g := NewCharades(env, DefaultCharadesConfig())
	g.Start()
	g.Close()
	h.clock.Drain()
	assert.Zero(t, g.cards.Len())
	assert.ErrorIs(t, g.Handle(Action{Type: "start_round"}), ErrClosed)
}
