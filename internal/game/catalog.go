package game

import "github.com/PrinceLee1/lovey-dovey/internal/domain"

// Entry is a dashboard listing for a game. Couple games record their
// results against the player's history using these fields.
type Entry struct {
	ID          string      `json:"id"`
	Kind        domain.Kind `json:"kind"`
	Title       string      `json:"title"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Duration    int         `json:"duration"`
	Players     int         `json:"players"`
	Difficulty  string      `json:"difficulty"`
}

var catalog = []Entry{
	{"g1", domain.KindTruthDare, "Truth or Dare – Romantic", "Romantic", "Sweet prompts to spark intimacy and laughter.", 10, 2, "Easy"},
	{"g2", domain.KindEmojiChat, "Emoji-Only Chat", "Playful", "Speak only in emojis for 5 minutes. Guess the message!", 5, 2, "Easy"},
	{"g3", domain.KindSpiceDice, "Spice Dice", "Spicy", "Roll the dice for a daring prompt. Keep it fun and consensual.", 8, 2, "Medium"},
	{"g4", domain.KindMemoryMatch, "Memory Match – Couple Edition", "Challenge", "Test how well you remember each other's favorites.", 7, 2, "Medium"},
	{"g5", domain.KindTrivia, "Trivia Night: Duo vs Duo", "Challenge", "Team up for trivia madness in group mode.", 12, 4, "Hard"},
	{"g6", domain.KindCharades, "Charades with AI Prompts", "Playful", "Act it out, let the group guess!", 10, 3, "Easy"},
}

func Catalog() []Entry { return append([]Entry(nil), catalog...) }

// Lookup finds the catalog entry for kind.
func Lookup(kind domain.Kind) (Entry, bool) {
	for _, e := range catalog {
		if e.Kind == kind {
			return e, true
		}
	}
	return Entry{}, false
}

// Couple reports whether the entry is played by two partners.
func (e Entry) Couple() bool { return e.Players <= 2 }
