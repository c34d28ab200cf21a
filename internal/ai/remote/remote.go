// Package remote fetches prompt content from the server's /ai endpoints.
package remote

import (
	"context"
	"fmt"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
)

// Poster is the slice of the API client this package needs.
type Poster interface {
	PostJSON(ctx context.Context, path string, body, out any) error
}

type Source struct {
	api Poster
}

func New(p Poster) *Source { return &Source{api: p} }

var _ ai.Source = (*Source)(nil)

func (s *Source) TruthDare(ctx context.Context, req ai.TruthDareRequest) (ai.TruthDareBatch, error) {
	if req.Tone == "" {
		req.Tone = "PG-13"
	}
	var out ai.TruthDareBatch
	if err := s.api.PostJSON(ctx, "/ai/truth-dare", req, &out); err != nil {
		return ai.TruthDareBatch{}, fmt.Errorf("truth-dare prompts: %w", err)
	}
	return out, nil
}

func (s *Source) Trivia(ctx context.Context, req ai.TriviaRequest) ([]ai.Question, error) {
	var out struct {
		Questions []ai.Question `json:"questions"`
	}
	if err := s.api.PostJSON(ctx, "/ai/trivia", req, &out); err != nil {
		return nil, fmt.Errorf("trivia questions: %w", err)
	}
	qs := out.Questions[:0]
	for _, q := range out.Questions {
		if q.Valid() {
			qs = append(qs, q)
		}
	}
	return qs, nil
}

func (s *Source) Charades(ctx context.Context, req ai.CharadesRequest) ([]ai.Card, error) {
	var out struct {
		Cards []ai.Card `json:"cards"`
	}
	if err := s.api.PostJSON(ctx, "/ai/charades", req, &out); err != nil {
		return nil, fmt.Errorf("charades cards: %w", err)
	}
	return out.Cards, nil
}
