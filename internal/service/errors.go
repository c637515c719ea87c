package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidURL              = errors.New("url must be an absolute http or https URL")
	ErrInvalidSlug             = errors.New("slug must be 2-64 characters of letters, digits, '-' or '_'")
	ErrInvalidExpiry           = errors.New("expiry must be between 1 minute and 5 years in the future")
	ErrInvalidClickLimit       = errors.New("click limit must be a whole number between 1 and 1000000")
	ErrSlugTaken               = errors.New("slug already exists")
	ErrSlugGenerationExhausted = errors.New("could not generate a free slug")
	ErrNotFound                = errors.New("not found")
	ErrInvalidAPIKey           = errors.New("invalid api key")
	ErrAccountSuspended        = errors.New("account suspended")
	ErrRateLimitExceeded       = errors.New("rate limit exceeded")
	ErrQuotaExceeded           = errors.New("quota exceeded")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidQuotaLimit       = errors.New("quota limit must be between 1 and 10000")
	ErrInvalidKeyName          = errors.New("key name must be 1-64 characters")
)

// LimitError reports a burst or quota rejection with enough detail for a
// client to back off. It unwraps to ErrRateLimitExceeded or ErrQuotaExceeded.
type LimitError struct {
	Kind    error
	Limit   int
	Window  time.Duration
	ResetAt time.Time
}

func (e *LimitError) Error() string {
	unit := "requests"
	if errors.Is(e.Kind, ErrQuotaExceeded) {
		unit = "links"
	}
	return fmt.Sprintf("%s: %d %s per %s", e.Kind, e.Limit, unit, e.Window)
}

func (e *LimitError) Unwrap() error {
	return e.Kind
}

// IsValidation reports whether err is a caller input error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrInvalidSlug) ||
		errors.Is(err, ErrInvalidExpiry) ||
		errors.Is(err, ErrInvalidClickLimit) ||
		errors.Is(err, ErrInvalidQuotaLimit) ||
		errors.Is(err, ErrInvalidKeyName)
}
