package domain

import "errors"

var (
	ErrUnknownKind      = errors.New("unsupported game kind")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrStatusRegression = errors.New("session status cannot go backwards")
	ErrEmptyMessage     = errors.New("message body is empty")
)
