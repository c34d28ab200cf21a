package game

import (
	"errors"
	"math/rand"

	"github.com/PrinceLee1/lovey-dovey/internal/ai"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhasePaused   Phase = "paused"
	PhaseRoundEnd Phase = "round_end"
	PhaseFinished Phase = "finished"
)

var (
	ErrNotRunning      = errors.New("game is not running")
	ErrFinished        = errors.New("game already finished")
	ErrClosed          = errors.New("game was closed")
	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidSettings = errors.New("invalid game settings")

	ErrNotEmoji        = errors.New("only emojis allowed")
	ErrConsentRequired = errors.New("consent is required first")
	ErrNoSkipsLeft     = errors.New("no skips left")
	ErrNoPrompt        = errors.New("nothing to act on yet")
	ErrPromptActive    = errors.New("finish the current prompt first")
	ErrContentPending  = errors.New("fetching more content")
	ErrBuzzLocked      = errors.New("another team holds the buzzer")
	ErrNotBuzzed       = errors.New("buzz in before answering")
	ErrCardHidden      = errors.New("reveal the card first")
	ErrInputLocked     = errors.New("wait for the cards to settle")
	ErrBadCard         = errors.New("card cannot be flipped")
	ErrSetupOnly       = errors.New("only possible before the game starts")
)

// Team is a side in a two-sided game. Couple games use it for the two
// partners, lobby games for team A and B.
type Team int

const (
	TeamA Team = 0
	TeamB Team = 1
)

func (t Team) Other() Team { return 1 - t }

func (t Team) String() string {
	if t == TeamB {
		return "B"
	}
	return "A"
}

// Action is one user input. Games read only the fields they need.
type Action struct {
	Type  string `json:"type"`
	Team  Team   `json:"team"`
	Index int    `json:"index"`
	Kind  string `json:"kind,omitempty"`
	Text  string `json:"text,omitempty"`
	Side  Team   `json:"side"`
	Value bool   `json:"value"`
}

// Snapshot is a render-ready copy of a game's state.
type Snapshot struct {
	Kind      domain.Kind    `json:"kind"`
	Phase     Phase          `json:"phase"`
	Remaining int            `json:"remaining"`
	Notice    string         `json:"notice,omitempty"`
	Error     string         `json:"error,omitempty"`
	Loading   bool           `json:"loading,omitempty"`
	Result    *domain.Result `json:"result,omitempty"`
	State     any            `json:"state"`
}

// Game is a mini-game state machine. All methods run on the event loop.
// Restart returns the game to idle with every counter cleared; Start runs
// it again.
type Game interface {
	Kind() domain.Kind
	Phase() Phase
	Start()
	Pause()
	Resume()
	Finish()
	Restart()
	Handle(a Action) error
	Snapshot() Snapshot
	Close()
}

// Env is what the host hands every game.
type Env struct {
	Sched   eventloop.Scheduler
	Source  ai.Source
	Players [2]string
	Rand    *rand.Rand

	// OnFinish receives the result exactly once per run.
	OnFinish func(domain.Result)
	// OnChange fires after any visible state change.
	OnChange func()
}

func (e Env) players() [2]string {
	p := e.Players
	if p[0] == "" {
		p[0] = "You"
	}
	if p[1] == "" {
		p[1] = "Partner"
	}
	return p
}

func (e Env) rng() *rand.Rand {
	if e.Rand != nil {
		return e.Rand
	}
	return rand.New(rand.NewSource(e.Sched.Now().UnixNano()))
}
