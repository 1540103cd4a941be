package models

import (
	"errors"
	"fmt"
)

// Kind classifies every failure a run can surface to the user.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindInput         Kind = "input"
	KindSummarization Kind = "summarization"
	KindSynthesis     Kind = "synthesis"
)

var (
	ErrEmptyURL     = errors.New("please enter a blog URL")
	ErrEmptySummary = errors.New("failed to generate summary")
	ErrEmptyAudio   = errors.New("synthesis returned no audio")
	ErrBusy         = errors.New("a podcast is already being generated")
)

// RunError is a failure tagged with its kind.
type RunError struct {
	Kind Kind
	Err  error
}

func NewRunError(kind Kind, err error) *RunError {
	return &RunError{Kind: kind, Err: err}
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Warning reports whether the failure is shown as a warning rather than an error.
func (e *RunError) Warning() bool {
	return e.Kind == KindInput
}

// Message is the text rendered in the page banner.
func (e *RunError) Message() string {
	switch e.Kind {
	case KindInput:
		return capitalize(e.Err.Error())
	case KindConfiguration:
		return e.Err.Error()
	default:
		return "Error: " + e.Err.Error()
	}
}

// AsRunError returns err as a *RunError, tagging it with fallback when it is not one already.
func AsRunError(err error, fallback Kind) *RunError {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr
	}

	return NewRunError(fallback, err)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}

	return string(s[0]-'a'+'A') + s[1:]
}
