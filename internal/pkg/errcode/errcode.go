package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrInvalidIdentity
	ErrNotEligible
	ErrAlreadySubmitted
	ErrDeliveryFailed
	ErrNoPendingRequest
	ErrInvalidOrExpired
	ErrNotAuthenticated
	ErrIncompleteAnswers
)
