package service

import "errors"

var (
	ErrValidation = errors.New("validation error")

	ErrUserNotFound      = errors.New("user not found")
	ErrPairTokenNotFound = errors.New("pairing token not found")

	ErrDuplicateNationalID = errors.New("cpf already registered")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateCardUUID   = errors.New("nfc card uuid already registered")

	ErrAlreadyBound      = errors.New("user already has an nfc card bound")
	ErrCardAlreadyBound  = errors.New("nfc card uuid already bound to a user")
	ErrNoCardBound       = errors.New("user has no nfc card bound")
	ErrNoActiveSession   = errors.New("no active pairing session")
	ErrInconsistentState = errors.New("pairing session references a missing user")
	ErrPairingInProgress = errors.New("another user's pairing session is in progress")
	ErrTokenExhausted    = errors.New("could not allocate a unique pairing token")
)

// ValidationError reports a malformed or missing input field.  It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CardBoundError is ErrAlreadyBound carrying the card the user already holds.
type CardBoundError struct {
	UUID string
}

func (e *CardBoundError) Error() string {
	return ErrAlreadyBound.Error()
}

func (e *CardBoundError) Unwrap() error {
	return ErrAlreadyBound
}
