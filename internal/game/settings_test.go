package game

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

func TestNewAppliesSettingsOverDefaults(t *testing.T) {
	env, _ := newHarness(&fakeSource{})

	g, err := New(domain.KindTrivia, env, json.RawMessage(`{"count":5}`))
	if err != nil {
		t.Fatal(err)
	}
	tr := g.(*Trivia)
	if tr.cfg.Count != 5 || tr.cfg.SecondsPerQ != 30 || tr.cfg.Category != "General" {
		t.Fatalf("unexpected config %+v", tr.cfg)
	}

	g, err = New(domain.KindMemoryMatch, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m := g.(*Memory); m.size != 4 || m.pairs != 8 {
		t.Fatalf("memory defaults: size %d pairs %d", m.size, m.pairs)
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	env, _ := newHarness(&fakeSource{})
	tests := []struct {
		name     string
		kind     domain.Kind
		settings string
		want     error
	}{
		{"memory board must be 4 or 6", domain.KindMemoryMatch, `{"size":5}`, ErrInvalidSettings},
		{"malformed json", domain.KindTruthDare, `{"category":`, ErrInvalidSettings},
		{"wrong field type", domain.KindCharades, `{"secondsPerRound":"long"}`, ErrInvalidSettings},
		{"emoji chat minutes bounded", domain.KindEmojiChat, `{"minutes":90}`, ErrInvalidSettings},
		{"trivia needs questions", domain.KindTrivia, `{"count":0}`, ErrInvalidSettings},
		{"unknown kind", domain.Kind("poker"), `{}`, domain.ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.kind, env, json.RawMessage(tt.settings))
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if g != nil {
				t.Fatal("no game should be built")
			}
		})
	}
}

func TestDefaultSettingsDecode(t *testing.T) {
	env, _ := newHarness(&fakeSource{})
	for _, k := range domain.Kinds() {
		if _, err := New(k, env, DefaultSettings(k)); err != nil {
			t.Fatalf("%s: defaults rejected: %v", k, err)
		}
	}
}
