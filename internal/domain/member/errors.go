package member

import (
	"errors"
	"fmt"
)

var (
	ErrMemberNotFound    = errors.New("member not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidUserID     = errors.New("user id must be positive")
)

// TransitionError reports which transition was refused and from which stage.
type TransitionError struct {
	Transition Transition
	From       Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s not allowed from stage %s", e.Transition, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
