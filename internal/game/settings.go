package game

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

// DefaultSettings is what a lobby host sends when starting kind without
// custom settings.
func DefaultSettings(kind domain.Kind) json.RawMessage {
	switch kind {
	case domain.KindTrivia:
		return json.RawMessage(`{"count":10,"secondsPerQ":30}`)
	case domain.KindCharades:
		return json.RawMessage(`{"secondsPerRound":60,"roundsPerTeam":3}`)
	}
	return json.RawMessage(`{}`)
}

type validator interface{ Validate() error }

// decode overlays raw on top of the defaults in dst.
func decode(raw json.RawMessage, dst validator) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("%w: %+v", err, dst)
	}
	return nil
}

// New builds the game for kind with settings applied over its defaults.
func New(kind domain.Kind, env Env, settings json.RawMessage) (Game, error) {
	switch kind {
	case domain.KindTruthDare:
		cfg := DefaultTruthDareConfig()
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		return NewTruthDare(env, cfg), nil
	case domain.KindEmojiChat:
		cfg := DefaultEmojiChatConfig()
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		return NewEmojiChat(env, cfg), nil
	case domain.KindSpiceDice:
		cfg := DefaultSpiceDiceConfig()
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		return NewSpiceDice(env, cfg), nil
	case domain.KindMemoryMatch:
		cfg := DefaultMemoryConfig()
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		return NewMemory(env, cfg), nil
	case domain.KindTrivia:
		cfg := DefaultTriviaConfig()
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		return NewTrivia(env, cfg), nil
	case domain.KindCharades:
		cfg := DefaultCharadesConfig()
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		return NewCharades(env, cfg), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
}
