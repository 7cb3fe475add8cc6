package audit

import (
	"time"

	id "idvault/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: consent changes, attribute disclosure, provisioning.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: context edits, bulk imports, connection changes.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// The per-consent accessedAt trail inside the user aggregate stays the
// authoritative disclosure record; these events are operational fan-out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	// ClientID identifies the relying party for consent events.
	ClientID string
	// ProviderID identifies the external provider for connection and import events.
	ProviderID string
	Decision   string
	Reason     string
	// RequestID is the correlation id from the calling layer, when present.
	RequestID string
}

type AuditEvent string

const (
	// Context events
	EventContextCreated AuditEvent = "context_created"
	EventContextUpdated AuditEvent = "context_updated"
	EventContextDeleted AuditEvent = "context_deleted"

	// Attribute events
	EventAttributeCreated    AuditEvent = "attribute_created"
	EventAttributeUpdated    AuditEvent = "attribute_updated"
	EventAttributeDeleted    AuditEvent = "attribute_deleted"
	EventAttributesImported  AuditEvent = "attributes_imported"
	EventDefaultsProvisioned AuditEvent = "defaults_provisioned"

	// Connection events
	EventConnectionLinked   AuditEvent = "connection_linked"
	EventConnectionUnlinked AuditEvent = "connection_unlinked"

	// Consent events
	EventConsentGranted          AuditEvent = "consent_granted"
	EventConsentUpdated          AuditEvent = "consent_updated"
	EventConsentRevoked          AuditEvent = "consent_revoked"
	EventConsentAttributeRemoved AuditEvent = "consent_attribute_removed"
	EventConsentAccessed         AuditEvent = "consent_accessed"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - consent lifecycle and disclosure
	EventConsentGranted:          CategoryCompliance,
	EventConsentUpdated:          CategoryCompliance,
	EventConsentRevoked:          CategoryCompliance,
	EventConsentAttributeRemoved: CategoryCompliance,
	EventConsentAccessed:         CategoryCompliance,
	EventDefaultsProvisioned:     CategoryCompliance,

	// Operations events - routine profile activity
	EventContextCreated:     CategoryOperations,
	EventContextUpdated:     CategoryOperations,
	EventContextDeleted:     CategoryOperations,
	EventAttributeCreated:   CategoryOperations,
	EventAttributeUpdated:   CategoryOperations,
	EventAttributeDeleted:   CategoryOperations,
	EventAttributesImported: CategoryOperations,
	EventConnectionLinked:   CategoryOperations,
	EventConnectionUnlinked: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
