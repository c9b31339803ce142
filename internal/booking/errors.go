package booking

import (
	"context"
	"errors"

	"github.com/example/op-booking/internal/internaltypes"
	"github.com/example/op-booking/internal/portal"
)

// ErrStale is returned when a response arrives for a date or symptom set
// that has since been replaced. The response is dropped.
var ErrStale = errors.New("booking: response is for an outdated selection")

// UserMessage turns any error from the portal into the single line shown to
// the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr *internaltypes.ValidationError
	var aerr *portal.APIError
	switch {
	case errors.As(err, &verr):
		return verr.Msg
	case errors.As(err, &aerr):
		return aerr.Message
	case errors.Is(err, internaltypes.ErrNotLoggedIn):
		return "Please log in to continue."
	case errors.Is(err, ErrStale):
		return "Your selection changed while the request was running. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	}
	return err.Error()
}
