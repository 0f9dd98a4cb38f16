package promotion

import "errors"

// Stable reason identifiers surfaced to clients when a voucher cannot
// be applied.
const (
	ReasonNotFound           = "not_found"
	ReasonInactive           = "inactive"
	ReasonExpired            = "expired"
	ReasonBelowMinimum       = "below_minimum"
	ReasonGlobalLimitReached = "global_limit_reached"
	ReasonUserLimitReached   = "user_limit_reached"
)

func ReasonOf(err error) string {
	switch {
	case errors.Is(err, ErrInactive):
		return ReasonInactive
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrBelowMinimum):
		return ReasonBelowMinimum
	case errors.Is(err, ErrGlobalLimitReached):
		return ReasonGlobalLimitReached
	case errors.Is(err, ErrUserLimitReached):
		return ReasonUserLimitReached
	default:
		return ReasonNotFound
	}
}
