package consent

import (
	"errors"
	"fmt"
)

var (
	ErrNoPendingConsent  = errors.New("no pending consent")
	ErrExpired           = errors.New("otp expired")
	ErrTooManyAttempts   = errors.New("too many otp attempts")
	ErrWrongCode         = errors.New("wrong otp code")
	ErrAlreadyConfirmed  = errors.New("consent already confirmed")
	ErrConcurrentUpdate  = errors.New("consent record was modified concurrently")
	ErrInvalidAnagraphic = errors.New("invalid anagraphic data")
	ErrNotConfirmed      = errors.New("consent not confirmed")
)

// WrongCodeError reports how many attempts are left after a mismatch.
type WrongCodeError struct {
	Remaining int
}

func (e *WrongCodeError) Error() string {
	return fmt.Sprintf("wrong otp code, %d attempts remaining", e.Remaining)
}

func (e *WrongCodeError) Is(target error) bool {
	return target == ErrWrongCode
}

// FieldError names the anagraphic field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidAnagraphic
}
