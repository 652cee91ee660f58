package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
)

// Ballot flow outcomes. None of them is a defect; each tells the caller what to do next.
var (
	ErrInvalidIdentity   = errors.New("invalid identity")
	ErrNotEligible       = errors.New("identity not eligible")
	ErrAlreadySubmitted  = errors.New("already submitted")
	ErrDeliveryFailed    = errors.New("code delivery failed")
	ErrNoPendingRequest  = errors.New("no pending request")
	ErrInvalidOrExpired  = errors.New("invalid or expired code")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrIncompleteAnswers = errors.New("incomplete answers")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
