package domain

// TurnSource answers "may this actor act right now". Couple sessions are
// backed by the server's turnUserId; lobby team games keep the turn inside
// the running game and ask it instead.
type TurnSource interface {
	CanAct(actor int64) bool
}

// SessionTurn gates on the server-owned turn of a couple session.
type SessionTurn struct {
	Session *Session
}

func (t SessionTurn) CanAct(actor int64) bool {
	if t.Session == nil || t.Session.Status != StatusActive || t.Session.TurnUserID == nil {
		return false
	}
	return *t.Session.TurnUserID == actor
}

// TurnFunc adapts a plain function, typically a game's team check.
type TurnFunc func(actor int64) bool

func (f TurnFunc) CanAct(actor int64) bool { return f(actor) }
