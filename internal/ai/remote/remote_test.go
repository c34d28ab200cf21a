package remote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
)

type mockPoster struct {
	mock.Mock
}

func (m *mockPoster) PostJSON(ctx context.Context, path string, body, out any) error {
	args := m.Called(path, body)
	if raw, ok := args.Get(0).(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return err
		}
	}
	return args.Error(1)
}

func TestTriviaDropsUnplayableQuestions(t *testing.T) {
	p := &mockPoster{}
	req := ai.TriviaRequest{Category: "General", Difficulty: "Medium", Count: 6}
	p.On("PostJSON", "/ai/trivia", req).Return(`{"questions":[
		{"question":"2+2?","options":["3","4","5","6"],"correctIndex":1},
		{"question":"broken","options":["a"],"correctIndex":0},
		{"question":"out of range","options":["a","b"],"correctIndex":4}
	]}`, nil)

	qs, err := New(p).Trivia(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "2+2?", qs[0].Question)
	p.AssertExpectations(t)
}

func TestTruthDareDefaultsTone(t *testing.T) {
	p := &mockPoster{}
	p.On("PostJSON", "/ai/truth-dare", mock.MatchedBy(func(r ai.TruthDareRequest) bool {
		return r.Tone == "PG-13" && r.Dares == 12
	})).Return(`{"truths":[],"dares":["kiss","hug"]}`, nil)

	b, err := New(p).TruthDare(context.Background(), ai.TruthDareRequest{Category: "Spicy", Dares: 12})
	require.NoError(t, err)
	assert.Equal(t, []string{"kiss", "hug"}, b.Dares)
	p.AssertExpectations(t)
}

func TestCharadesWrapsErrors(t *testing.T) {
	boom := errors.New("offline")
	p := &mockPoster{}
	p.On("PostJSON", "/ai/charades", mock.Anything).Return("", boom)

	_, err := New(p).Charades(context.Background(), ai.CharadesRequest{Count: 24})
	assert.ErrorIs(t, err, boom)
}
