package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const defaultMessage = "Something went wrong"

// Error is a failed request. Message is what the server put in its
// "message" field, or a generic line when it sent nothing usable. Status is
// zero when the request never got a response.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether retrying the same request could succeed.
func (e *Error) Transient() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func errorFrom(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Message string `json:"message"`
	}
	msg := defaultMessage
	if json.Unmarshal(b, &body) == nil && body.Message != "" {
		msg = body.Message
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}

// Message returns the user-facing text for any error coming out of this
// package.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return defaultMessage
}

// IsStatus reports whether err is an *Error carrying the given status.
func IsStatus(err error, status int) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == status
}
