package game

import (
	"errors"
	"testing"
)

func TestTruthDareFlow(t *testing.T) {
	src := &fakeSource{}
	env, h := newHarness(src)
	g := NewTruthDare(env, DefaultTruthDareConfig())

	if err := g.Handle(Action{Type: "choose", Kind: "truth"}); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning before start, got %v", err)
	}
	g.Start()
	if err := g.Handle(Action{Type: "choose", Kind: "truth"}); !errors.Is(err, ErrContentPending) {
		t.Fatalf("expected ErrContentPending before the pool lands, got %v", err)
	}
	h.clock.Drain()

	mustHandle(t, g, Action{Type: "choose", Kind: "truth"})
	v := g.Snapshot().State.(TruthDareView)
	if v.Prompt != "truth-1" || v.Step != "prompt" {
		t.Fatalf("unexpected view %+v", v)
	}
	if err := g.Handle(Action{Type: "choose", Kind: "dare"}); !errors.Is(err, ErrPromptActive) {
		t.Fatalf("choosing twice should be rejected, got %v", err)
	}

	mustHandle(t, g, Action{Type: "skip"})
	mustHandle(t, g, Action{Type: "skip"})
	if err := g.Handle(Action{Type: "skip"}); !errors.Is(err, ErrNoSkipsLeft) {
		t.Fatalf("expected ErrNoSkipsLeft, got %v", err)
	}
	if got := g.Snapshot().State.(TruthDareView).Prompt; got != "truth-3" {
		t.Fatalf("skip should redraw the same kind, got %q", got)
	}

	mustHandle(t, g, Action{Type: "complete"})
	mustHandle(t, g, Action{Type: "choose", Kind: "dare"})
	mustHandle(t, g, Action{Type: "complete"})

	v = g.Snapshot().State.(TruthDareView)
	if v.Turn != TeamA || v.Round != 3 || v.Completed != 2 {
		t.Fatalf("unexpected tallies %+v", v)
	}

	g.Finish()
	g.Finish()
	r := h.only(t)
	if r.XPEarned != 40 || r.Rounds != 2 || r.Skipped != 2 {
		t.Fatalf("unexpected result %+v", r)
	}
	if err := g.Handle(Action{Type: "complete"}); !errors.Is(err, ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
}

func TestTruthDareTopsUpBelowLowWater(t *testing.T) {
	src := &fakeSource{}
	env, h := newHarness(src)
	g := NewTruthDare(env, DefaultTruthDareConfig())
	g.Start()
	h.clock.Drain()
	before := src.calls["truth-dare"]

	for i := 0; i < 10; i++ {
		mustHandle(t, g, Action{Type: "choose", Kind: "dare"})
		mustHandle(t, g, Action{Type: "complete"})
	}
	if src.calls["truth-dare"] != before+1 {
		t.Fatalf("expected exactly one top-up fetch, got %d", src.calls["truth-dare"]-before)
	}
	h.clock.Drain()
	mustHandle(t, g, Action{Type: "choose", Kind: "dare"})
	if got := g.Snapshot().State.(TruthDareView).Prompt; got != "dare-11" {
		t.Fatalf("dares must come out in order, got %q", got)
	}
}

func TestTruthDareRestart(t *testing.T) {
	env, h := newHarness(&fakeSource{})
	g := NewTruthDare(env, DefaultTruthDareConfig())
	g.Start()
	h.clock.Drain()
	mustHandle(t, g, Action{Type: "choose", Kind: "truth"})
	mustHandle(t, g, Action{Type: "complete"})
	g.Restart()

	v := g.Snapshot().State.(TruthDareView)
	if g.Phase() != PhaseIdle || v.Round != 1 || v.Completed != 0 || v.Skips != 2 || v.Turn != TeamA {
		t.Fatalf("restart left state behind: %s %+v", g.Phase(), v)
	}
}
