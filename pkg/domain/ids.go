package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "idvault/pkg/domain-errors"
)

// Typed entity ids keep the aggregate's cross-references honest at compile
// time: a ConsentID can never be handed to a function expecting an
// AttributeID.
//
// Wire format is `<prefix>-XXXXXXXX` where XXXXXXXX is 8 lowercase hex
// characters, taken from the leading segment of a random UUID. The format is
// stable; existing stored data depends on it.
type (
	UserID       string
	ContextID    string
	AttributeID  string
	ConsentID    string
	ConnectionID string
)

const (
	contextPrefix    = "ctx-"
	attributePrefix  = "attr-"
	consentPrefix    = "cons-"
	connectionPrefix = "conn-"
)

// shortID returns the first 8 hex chars of a fresh random UUID. The UUID
// string form is lowercase hex up to the first dash, which is exactly the
// 8 characters the id format requires.
func shortID() string {
	return uuid.NewString()[:8]
}

// NewContextID generates a fresh context id (`ctx-` + 8 hex chars).
func NewContextID() ContextID { return ContextID(contextPrefix + shortID()) }

// NewAttributeID generates a fresh attribute id (`attr-` + 8 hex chars).
func NewAttributeID() AttributeID { return AttributeID(attributePrefix + shortID()) }

// NewConsentID generates a fresh consent id (`cons-` + 8 hex chars).
func NewConsentID() ConsentID { return ConsentID(consentPrefix + shortID()) }

// NewConnectionID generates a fresh connection id (`conn-` + 8 hex chars).
func NewConnectionID() ConnectionID { return ConnectionID(connectionPrefix + shortID()) }

func (id UserID) String() string       { return string(id) }
func (id ContextID) String() string    { return string(id) }
func (id AttributeID) String() string  { return string(id) }
func (id ConsentID) String() string    { return string(id) }
func (id ConnectionID) String() string { return string(id) }

// IsNil reports whether the user id is empty.
func (id UserID) IsNil() bool { return id == "" }

func validShortID(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok || len(rest) != 8 {
		return false
	}
	for _, c := range rest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ParseContextID validates external input against the context id format.
//
// Usage: call from adapters when parsing requests; direct casting bypasses
// validation.
func ParseContextID(s string) (ContextID, error) {
	if !validShortID(s, contextPrefix) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid context id %q", s)
	}
	return ContextID(s), nil
}

// ParseAttributeID validates external input against the attribute id format.
func ParseAttributeID(s string) (AttributeID, error) {
	if !validShortID(s, attributePrefix) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid attribute id %q", s)
	}
	return AttributeID(s), nil
}

// ParseConsentID validates external input against the consent id format.
func ParseConsentID(s string) (ConsentID, error) {
	if !validShortID(s, consentPrefix) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid consent id %q", s)
	}
	return ConsentID(s), nil
}

// ParseConnectionID validates external input against the connection id format.
func ParseConnectionID(s string) (ConnectionID, error) {
	if !validShortID(s, connectionPrefix) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid connection id %q", s)
	}
	return ConnectionID(s), nil
}
