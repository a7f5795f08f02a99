package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrNoServices    = errors.New("select at least one service")
	ErrNoStylist     = errors.New("select a stylist")
	ErrNoDateTime    = errors.New("select a date and a time")
	ErrNoSite        = errors.New("select a salon location")
	ErrNotLinked     = errors.New("your account is not linked to a customer yet")
	ErrLoginRequired = errors.New("you must log in to book an appointment")
	ErrWrongStep     = errors.New("this action is not available at the current step")
	ErrSubmitting    = errors.New("a booking is already being submitted")
)

// StepError attaches a failure to the step it was raised at.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("wizard: step %d (%s): %v", int(e.Step), e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Message is the text shown to the user.
func (e *StepError) Message() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// IsValidation reports whether err is a local validation failure that never
// reached the network.
func IsValidation(err error) bool {
	for _, target := range []error{ErrNoServices, ErrNoStylist, ErrNoDateTime, ErrNoSite, ErrLoginRequired, ErrNotLinked, ErrWrongStep, ErrSubmitting} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
