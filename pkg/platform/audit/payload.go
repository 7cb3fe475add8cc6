package audit

import (
	"encoding/json"
	"fmt"
	"time"

	id "idvault/pkg/domain"
)

// Payload is the JSON structure published to Kafka. Field names are part of
// the streaming contract; the consumer deserializes against them.
type Payload struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Timestamp  string `json:"timestamp"`
	UserID     string `json:"userId,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Action     string `json:"action"`
	ClientID   string `json:"clientId,omitempty"`
	ProviderID string `json:"providerId,omitempty"`
	Decision   string `json:"decision,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

// EncodePayload serializes an event under the given event id.
func EncodePayload(eventID string, event Event) ([]byte, error) {
	p := Payload{
		ID:         eventID,
		Category:   string(event.Category),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		UserID:     event.UserID.String(),
		Subject:    event.Subject,
		Action:     event.Action,
		ClientID:   event.ClientID,
		ProviderID: event.ProviderID,
		Decision:   event.Decision,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return raw, nil
}

// DecodePayload parses a streamed payload back into an event plus its id.
func DecodePayload(raw []byte) (string, Event, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return "", Event{}, fmt.Errorf("parse audit timestamp: %w", err)
	}
	event := Event{
		Category:   EventCategory(p.Category),
		Timestamp:  ts,
		UserID:     id.UserID(p.UserID),
		Subject:    p.Subject,
		Action:     p.Action,
		ClientID:   p.ClientID,
		ProviderID: p.ProviderID,
		Decision:   p.Decision,
		Reason:     p.Reason,
		RequestID:  p.RequestID,
	}
	return p.ID, event, nil
}
