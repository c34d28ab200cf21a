package game

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
)

// fakeSource hands out numbered content so tests can tell items apart.
type fakeSource struct {
	truths, dares, cards int
	questions            []ai.Question
	triviaErr            error
	cardsErr             error
	calls                map[string]int
}

func (f *fakeSource) count(name string) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeSource) TruthDare(_ context.Context, req ai.TruthDareRequest) (ai.TruthDareBatch, error) {
	f.count("truth-dare")
	var b ai.TruthDareBatch
	for i := 0; i < req.Truths; i++ {
		f.truths++
		b.Truths = append(b.Truths, fmt.Sprintf("truth-%d", f.truths))
	}
	for i := 0; i < req.Dares; i++ {
		f.dares++
		b.Dares = append(b.Dares, fmt.Sprintf("dare-%d", f.dares))
	}
	return b, nil
}

func (f *fakeSource) Trivia(_ context.Context, req ai.TriviaRequest) ([]ai.Question, error) {
	f.count("trivia")
	if f.triviaErr != nil {
		return nil, f.triviaErr
	}
	return append([]ai.Question(nil), f.questions...), nil
}

func (f *fakeSource) Charades(_ context.Context, req ai.CharadesRequest) ([]ai.Card, error) {
	f.count("charades")
	if f.cardsErr != nil {
		return nil, f.cardsErr
	}
	out := make([]ai.Card, req.Count)
	for i := range out {
		f.cards++
		out[i] = ai.Card{Title: fmt.Sprintf("card-%d", f.cards), Taboo: []string{"a", "b"}}
	}
	return out, nil
}

// questions builds n questions whose first option is always right.
func questions(n int) []ai.Question {
	qs := make([]ai.Question, n)
	for i := range qs {
		qs[i] = ai.Question{
			Question:     fmt.Sprintf("q%d", i),
			Options:      []string{"right", "wrong", "nope", "nah"},
			CorrectIndex: 0,
		}
	}
	return qs
}

type harness struct {
	clock   *eventloop.Manual
	results []domain.Result
	changes int
}

func newHarness(src ai.Source) (Env, *harness) {
	h := &harness{clock: eventloop.NewManual(time.Date(2025, 2, 14, 20, 0, 0, 0, time.UTC))}
	env := Env{
		Sched:    h.clock,
		Source:   src,
		Players:  [2]string{"Ada", "Bo"},
		Rand:     rand.New(rand.NewSource(7)),
		OnFinish: func(r domain.Result) { h.results = append(h.results, r) },
		OnChange: func() { h.changes++ },
	}
	return env, h
}

func (h *harness) only(t *testing.T) domain.Result {
	t.Helper()
	if len(h.results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(h.results))
	}
	return h.results[0]
}

func mustHandle(t *testing.T, g Game, a Action) {
	t.Helper()
	if err := g.Handle(a); err != nil {
		t.Fatalf("%s: unexpected error: %v", a.Type, err)
	}
}
