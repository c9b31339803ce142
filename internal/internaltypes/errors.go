package internaltypes

import "errors"

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrNotFound    = errors.New("not found")
)

// ValidationError is a problem with user input found before any network
// call. Msg is shown to the user as is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Invalid(msg string) error { return &ValidationError{Msg: msg} }
