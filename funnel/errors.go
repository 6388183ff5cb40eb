package funnel

import "errors"

// Sentinel errors shared between the store, sink and services. Wrapped
// values are matched with errors.Is.
var (
	// ErrUserBlocked means the platform refused delivery because the user
	// blocked the bot. The user is deactivated and the slot consumed.
	ErrUserBlocked = errors.New("user blocked bot")

	// ErrMediaInvalid means the platform rejected the request itself
	// (expired media reference, malformed markup). No retry can succeed.
	ErrMediaInvalid = errors.New("invalid media or request")

	// ErrPlatformTransient covers timeouts and 5xx-equivalent platform
	// failures. The schedule entry stays unsent and retries next tick.
	ErrPlatformTransient = errors.New("transient platform failure")

	// ErrStoreConflict means another task already consumed the slot.
	ErrStoreConflict = errors.New("schedule entry already sent")

	// ErrTemplateMissing means no template exists for the requested step.
	ErrTemplateMissing = errors.New("template not found")

	// ErrUserIneligible is returned by enrollment-time operations whose
	// preconditions do not hold (funnel enrollment of a paid user, repeat
	// mark-paid). Callers treat it as a no-op.
	ErrUserIneligible = errors.New("user not eligible")

	// ErrConfigInvalid means a configured message is empty at send time.
	ErrConfigInvalid = errors.New("invalid configuration")
)
