package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idvault/pkg/domain-errors"
)

// TestNewIDs_Format validates the generation invariant: every generated id is
// `<prefix>-XXXXXXXX` with 8 lowercase hex characters, and round-trips through
// its parser.
func TestNewIDs_Format(t *testing.T) {
	t.Run("context ids", func(t *testing.T) {
		for range 50 {
			id := NewContextID()
			parsed, err := ParseContextID(id.String())
			require.NoError(t, err, "generated id %q must parse", id)
			assert.Equal(t, id, parsed)
			assert.True(t, strings.HasPrefix(id.String(), "ctx-"))
			assert.Len(t, id.String(), len("ctx-")+8)
		}
	})

	t.Run("attribute ids", func(t *testing.T) {
		id := NewAttributeID()
		_, err := ParseAttributeID(id.String())
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id.String(), "attr-"))
	})

	t.Run("consent ids", func(t *testing.T) {
		id := NewConsentID()
		_, err := ParseConsentID(id.String())
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id.String(), "cons-"))
	})

	t.Run("connection ids", func(t *testing.T) {
		id := NewConnectionID()
		_, err := ParseConnectionID(id.String())
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id.String(), "conn-"))
	})
}

// TestParseID_Invariants validates the parsing invariant: ids must carry the
// right prefix followed by exactly 8 lowercase hex characters.
func TestParseID_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid lowercase hex", "ctx-0a1b2c3d", false},
		{"all digits", "ctx-01234567", false},
		{"empty string", "", true},
		{"prefix only", "ctx-", true},
		{"too short", "ctx-abc", true},
		{"too long", "ctx-0a1b2c3d4", true},
		{"uppercase hex rejected", "ctx-0A1B2C3D", true},
		{"non-hex characters", "ctx-0a1b2c3z", true},
		{"wrong prefix", "attr-0a1b2c3d", true},
		{"missing dash", "ctx0a1b2c3d", true},
		{"SQL injection attempt", "'; DROP TABLE users;--", true},
		{"path traversal", "../../../etc/passwd", true},
		{"null byte injection", "ctx-0a1b\x002c3d", true},
		{"oversized input", "ctx-" + strings.Repeat("a", 1000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContextID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestTypeDistinction verifies the compiler enforces type safety between id
// kinds. This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	ctxID := NewContextID()
	attrID := NewAttributeID()

	// These would fail to compile if types were interchangeable:
	// var _ ContextID = attrID   // compile error
	// var _ AttributeID = ctxID  // compile error

	assert.NotEqual(t, string(ctxID), string(attrID))
}

// TestParseAllIDs_ConsistentRejection ensures every id parser rejects another
// kind's valid id.
func TestParseAllIDs_ConsistentRejection(t *testing.T) {
	ctxID := NewContextID().String()

	_, err := ParseAttributeID(ctxID)
	require.Error(t, err)
	_, err = ParseConsentID(ctxID)
	require.Error(t, err)
	_, err = ParseConnectionID(ctxID)
	require.Error(t, err)
}
