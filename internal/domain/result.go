package domain

// Result is what every mini-game emits exactly once when it finishes.
type Result struct {
	XPEarned int            `json:"xpEarned"`
	Rounds   int            `json:"rounds"`
	Skipped  int            `json:"skipped"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Clamp forces the counters to be non-negative.
func (r Result) Clamp() Result {
	if r.XPEarned < 0 {
		r.XPEarned = 0
	}
	if r.Rounds < 0 {
		r.Rounds = 0
	}
	if r.Skipped < 0 {
		r.Skipped = 0
	}
	return r
}
