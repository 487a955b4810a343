package service

import "errors"

// Sentinel errors for the auth service; handlers map them to transport status codes.
// Detail is attached with fmt.Errorf("%w: ..."), so compare with errors.Is.
var (
	ErrValidation    = errors.New("invalid request")
	ErrUnauthorized  = errors.New("invalid credentials")
	ErrAccountLocked = errors.New("account locked")
	ErrForbidden     = errors.New("forbidden")
)

// Outcome labels used for metrics and audit metadata.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeRejected  = "rejected"
	OutcomeLocked    = "locked"
	OutcomeForbidden = "forbidden"
	OutcomeError     = "error"
)

// Outcome classifies err into one of the Outcome labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return OutcomeInvalid
	case errors.Is(err, ErrUnauthorized):
		return OutcomeRejected
	case errors.Is(err, ErrAccountLocked):
		return OutcomeLocked
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	default:
		return OutcomeError
	}
}
