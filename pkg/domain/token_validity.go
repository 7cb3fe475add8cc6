package domain

import (
	"time"

	dErrors "idvault/pkg/domain-errors"
)

// TokenValidity is a domain value that bounds how long tokens minted against a
// consent stay valid.
// Invariant: the value must be one of the supported validity windows.
//
// Usage: construct via ParseTokenValidity at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type TokenValidity string

// Supported validity windows. The wire values are fixed; stored consents
// depend on them.
const (
	ValidityOneMinute TokenValidity = "ONE_MINUTE"
	ValidityOneHour   TokenValidity = "ONE_HOUR"
	ValidityOneDay    TokenValidity = "ONE_DAY"
	ValidityOneMonth  TokenValidity = "ONE_MONTH"
	ValidityOneYear   TokenValidity = "ONE_YEAR"
)

// validityDurations is the single source of truth for valid windows.
var validityDurations = map[TokenValidity]time.Duration{
	ValidityOneMinute: time.Minute,
	ValidityOneHour:   time.Hour,
	ValidityOneDay:    24 * time.Hour,
	ValidityOneMonth:  30 * 24 * time.Hour,
	ValidityOneYear:   365 * 24 * time.Hour,
}

// ParseTokenValidity constructs a TokenValidity from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseTokenValidity(s string) (TokenValidity, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "token validity cannot be empty")
	}
	v := TokenValidity(s)
	if !v.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid token validity %q", s)
	}
	return v, nil
}

// IsValid checks if the validity is one of the supported enum values.
func (v TokenValidity) IsValid() bool {
	_, ok := validityDurations[v]
	return ok
}

// Duration returns the wall-clock window the validity represents. Unsupported
// values return zero; validate first with IsValid or ParseTokenValidity.
func (v TokenValidity) Duration() time.Duration {
	return validityDurations[v]
}

// String returns the string representation of the validity window.
func (v TokenValidity) String() string {
	return string(v)
}
