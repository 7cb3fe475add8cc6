// Package models holds the user aggregate. The aggregate root owns every
// child collection exclusively: contexts, attributes, consents and connections
// are never shared across users or persisted independently.
//
// Entities are kept as flat lists and related by string id only (arena style).
// Relationships are resolved by lookup at read time, never cached as live
// references, so removing an entity can never leave a dangling pointer.
package models

import (
	"strings"
	"time"

	id "idvault/pkg/domain"
)

// User is the aggregate root. Stores load and persist it as a whole; there is
// no partial-update path for child entities.
//
// PasswordHash is opaque pass-through data: hashing and verification happen in
// the authentication layer, never here.
type User struct {
	ID           id.UserID           `json:"id"`
	Username     string              `json:"username"`
	PasswordHash string              `json:"passwordHash,omitempty"`
	Email        string              `json:"email"`
	Roles        []string            `json:"roles,omitempty"`
	Contexts     []Context           `json:"contexts"`
	Attributes   []IdentityAttribute `json:"attributes"`
	Consents     []Consent           `json:"consents"`
	Connections  []Connection        `json:"connections"`
}

// Context is a named grouping (e.g. "Personal") used to scope which attributes
// are relevant together. Names need not be unique; ids are.
type Context struct {
	ID          id.ContextID `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
}

// IdentityAttribute is a single named fact about the user.
// Invariant: Name is unique case-insensitively within the owning user's list.
// ContextIDs reference contexts owned by the same user; dangling references
// are pruned when a context is deleted and otherwise tolerated.
type IdentityAttribute struct {
	ID         id.AttributeID `json:"id"`
	UserID     id.UserID      `json:"userId"`
	Name       string         `json:"name"`
	Value      string         `json:"value"`
	Visible    bool           `json:"visible"`
	ContextIDs []id.ContextID `json:"contextIds"`
}

// Consent is a per-client grant describing which attributes, under which
// context, may be disclosed, and for how long minted tokens stay valid.
// Invariant: at most one consent per (user, clientId) pair.
// AccessedAt is an append-only, unbounded audit trail.
type Consent struct {
	ID               id.ConsentID     `json:"id"`
	ClientID         string           `json:"clientId"`
	ContextID        id.ContextID     `json:"contextId"`
	SharedAttributes []id.AttributeID `json:"sharedAttributes"`
	TokenValidity    id.TokenValidity `json:"tokenValidity"`
	CreatedAt        time.Time        `json:"createdAt"`
	LastUpdatedAt    time.Time        `json:"lastUpdatedAt"`
	AccessedAt       []time.Time      `json:"accessedAt,omitempty"`
}

// Connection links an external provider account.
// Invariant: at most one connection per (user, providerId, providerUserId)
// triple; the same provider may appear in several connections.
type Connection struct {
	ID                  id.ConnectionID `json:"id"`
	ProviderID          string          `json:"providerId"`
	ProviderUserID      string          `json:"providerUserId"`
	ProviderAccessToken string          `json:"providerAccessToken,omitempty"`
	ConnectedAt         time.Time       `json:"connectedAt"`
}

// ContextByID returns a pointer into the user's context list, or nil.
func (u *User) ContextByID(ctxID id.ContextID) *Context {
	for i := range u.Contexts {
		if u.Contexts[i].ID == ctxID {
			return &u.Contexts[i]
		}
	}
	return nil
}

// AttributeByID returns a pointer into the user's attribute list, or nil.
func (u *User) AttributeByID(attrID id.AttributeID) *IdentityAttribute {
	for i := range u.Attributes {
		if u.Attributes[i].ID == attrID {
			return &u.Attributes[i]
		}
	}
	return nil
}

// ConsentByClientID returns the consent granted to the given client, or nil.
// ClientID is the natural external key: the consent list holds at most one
// entry per client.
func (u *User) ConsentByClientID(clientID string) *Consent {
	for i := range u.Consents {
		if u.Consents[i].ClientID == clientID {
			return &u.Consents[i]
		}
	}
	return nil
}

// ConsentByID returns the consent with the given internal id, or nil.
func (u *User) ConsentByID(consentID id.ConsentID) *Consent {
	for i := range u.Consents {
		if u.Consents[i].ID == consentID {
			return &u.Consents[i]
		}
	}
	return nil
}

// ConnectionByProviderAccount returns the connection matching the
// (providerId, providerUserId) identity, or nil.
func (u *User) ConnectionByProviderAccount(providerID, providerUserID string) *Connection {
	for i := range u.Connections {
		c := &u.Connections[i]
		if c.ProviderID == providerID && c.ProviderUserID == providerUserID {
			return c
		}
	}
	return nil
}

// AttributeNameTaken reports whether another attribute (id != exclude) already
// uses the name, compared case-insensitively.
func (u *User) AttributeNameTaken(name string, exclude id.AttributeID) bool {
	lower := strings.ToLower(name)
	for i := range u.Attributes {
		if u.Attributes[i].ID == exclude {
			continue
		}
		if strings.ToLower(u.Attributes[i].Name) == lower {
			return true
		}
	}
	return false
}

// TakenAttributeNames returns the lower-cased names currently in use. The map
// is a fresh copy the caller may extend (the bulk importer threads it through
// its rename pass).
func (u *User) TakenAttributeNames() map[string]struct{} {
	taken := make(map[string]struct{}, len(u.Attributes))
	for i := range u.Attributes {
		taken[strings.ToLower(u.Attributes[i].Name)] = struct{}{}
	}
	return taken
}

// NormalizeContextIDs suppresses duplicates while preserving first-seen order
// and maps nil to an empty slice. Attribute writes run every incoming
// contextIds list through this.
func NormalizeContextIDs(ids []id.ContextID) []id.ContextID {
	out := make([]id.ContextID, 0, len(ids))
	seen := make(map[id.ContextID]struct{}, len(ids))
	for _, cid := range ids {
		if _, dup := seen[cid]; dup {
			continue
		}
		seen[cid] = struct{}{}
		out = append(out, cid)
	}
	return out
}

// Clone deep-copies the aggregate so stores can hand out isolated snapshots.
// Nil collections stay nil so clones compare equal to their originals and
// JSON round-trips keep null vs [] stable.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	cp.Contexts = append([]Context(nil), u.Contexts...)
	cp.Connections = append([]Connection(nil), u.Connections...)

	cp.Attributes = append([]IdentityAttribute(nil), u.Attributes...)
	for i := range cp.Attributes {
		cp.Attributes[i].ContextIDs = append([]id.ContextID(nil), u.Attributes[i].ContextIDs...)
	}

	cp.Consents = append([]Consent(nil), u.Consents...)
	for i := range cp.Consents {
		cp.Consents[i].SharedAttributes = append([]id.AttributeID(nil), u.Consents[i].SharedAttributes...)
		cp.Consents[i].AccessedAt = append([]time.Time(nil), u.Consents[i].AccessedAt...)
	}
	return &cp
}
