// Package ai describes the generated content the mini-games consume. The
// generator itself lives on the server; Source is the client's view of it.
package ai

import "context"

// Source produces fresh prompt content. Implementations block and are
// called off the event loop.
type Source interface {
	TruthDare(ctx context.Context, req TruthDareRequest) (TruthDareBatch, error)
	Trivia(ctx context.Context, req TriviaRequest) ([]Question, error)
	Charades(ctx context.Context, req CharadesRequest) ([]Card, error)
}

type TruthDareRequest struct {
	Category    string   `json:"category"`
	Tone        string   `json:"tone"`
	Truths      int      `json:"count_truths"`
	Dares       int      `json:"count_dares"`
	Names       []string `json:"names,omitempty"`
	Personalize bool     `json:"personalize"`
}

type TruthDareBatch struct {
	Truths []string `json:"truths"`
	Dares  []string `json:"dares"`
}

type TriviaRequest struct {
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Count       int    `json:"count"`
	Personalize bool   `json:"personalize"`
}

// Question is a four-option multiple choice question.
type Question struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Category     string   `json:"category,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
}

// Valid reports whether the question can be played.
func (q Question) Valid() bool {
	return q.Question != "" && len(q.Options) >= 2 && q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
}

type CharadesRequest struct {
	Category    string   `json:"category"`
	Difficulty  string   `json:"difficulty"`
	Count       int      `json:"count"`
	TabooWords  int      `json:"taboo_words"`
	Names       []string `json:"names,omitempty"`
	Personalize bool     `json:"personalize"`
}

type Card struct {
	Title      string   `json:"title"`
	Hint       string   `json:"hint,omitempty"`
	Taboo      []string `json:"taboo"`
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}
