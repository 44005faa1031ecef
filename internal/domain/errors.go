package domain

import (
	"errors"
	"strings"
)

// ErrSpamRejected is the sentinel every spam rejection unwraps to.
var ErrSpamRejected = errors.New("submission rejected as spam")

// ValidationError carries the ordered, user-facing validation messages.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// SpamError records which heuristic fired. The reason is for logs only and is
// never sent to the client.
type SpamError struct {
	Reason string
	Detail string
}

func (e *SpamError) Error() string {
	if e.Detail != "" {
		return ErrSpamRejected.Error() + ": " + e.Reason + " (" + e.Detail + ")"
	}
	return ErrSpamRejected.Error() + ": " + e.Reason
}

func (e *SpamError) Unwrap() error {
	return ErrSpamRejected
}
