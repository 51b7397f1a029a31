package domain

import (
	"errors"
	"fmt"

	"github.com/totegamma/curatorgate"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrExpired            = errors.New("invite code expired")
	ErrAlreadyUsed        = errors.New("invite code already used")
	ErrEmailMismatch      = errors.New("invite code bound to another email")
	ErrRateLimited        = errors.New("too many attempts")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrAlreadyExists      = errors.New("already exists")
)

// ReasonOf maps an error from the taxonomy to its wire reason. Anything
// outside the taxonomy is reported as a server error.
func ReasonOf(err error) curatorgate.Reason {
	switch {
	case err == nil:
		return curatorgate.ReasonNone
	case errors.Is(err, ErrInvalidInput):
		return curatorgate.ReasonInvalid
	case errors.Is(err, ErrNotFound):
		return curatorgate.ReasonNotFound
	case errors.Is(err, ErrExpired):
		return curatorgate.ReasonExpired
	case errors.Is(err, ErrAlreadyUsed):
		return curatorgate.ReasonAlreadyUsed
	case errors.Is(err, ErrEmailMismatch):
		return curatorgate.ReasonEmailMismatch
	case errors.Is(err, ErrRateLimited):
		return curatorgate.ReasonRateLimited
	default:
		return curatorgate.ReasonServerError
	}
}
