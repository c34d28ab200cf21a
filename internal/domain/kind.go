package domain

import "fmt"

// Kind names a mini-game.
type Kind string

const (
	KindTruthDare   Kind = "truth_dare"
	KindEmojiChat   Kind = "emoji_chat"
	KindSpiceDice   Kind = "spice_dice"
	KindMemoryMatch Kind = "memory_match"
	KindTrivia      Kind = "trivia"
	KindCharades    Kind = "charades_ai"
)

var kinds = []Kind{KindTruthDare, KindEmojiChat, KindSpiceDice, KindMemoryMatch, KindTrivia, KindCharades}

func Kinds() []Kind { return append([]Kind(nil), kinds...) }

func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// LobbyHosted reports whether the kind is played as a team game inside a
// lobby, where turns live inside the game instead of on the session.
func (k Kind) LobbyHosted() bool {
	return k == KindTrivia || k == KindCharades
}
