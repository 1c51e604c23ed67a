package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "deedblock/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseOwnerID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseOwnerID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseOwnerID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseOwnerID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, OwnerID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	ownerID := OwnerID(uuid.New())
	submissionID := SubmissionID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ OwnerID = submissionID   // compile error
	// var _ SubmissionID = ownerID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(ownerID), uuid.UUID(submissionID))
}

// TestParseID_SecurityInvariants validates trust-boundary parsing rules.
// Parsing must reject attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE drafts;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOwnerID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types validate identically.
// Inconsistent validation across ID types could create security holes.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errOwner := ParseOwnerID(validUUID)
		_, errSubmission := ParseSubmissionID(validUUID)
		assert.NoError(t, errOwner)
		assert.NoError(t, errSubmission)
	})

	t.Run("all reject invalid input", func(t *testing.T) {
		for _, input := range invalidInputs {
			_, errOwner := ParseOwnerID(input)
			_, errSubmission := ParseSubmissionID(input)
			assert.Error(t, errOwner, "owner id should reject %q", input)
			assert.Error(t, errSubmission, "submission id should reject %q", input)
		}
	})
}

func TestParseTransactionType(t *testing.T) {
	t.Run("accepts every supported type", func(t *testing.T) {
		for _, s := range []string{"sale", "gift", "partition", "mortgage", "exchange", "lease"} {
			tt, err := ParseTransactionType(s)
			require.NoError(t, err)
			assert.Equal(t, s, tt.String())
		}
	})

	t.Run("rejects empty and unknown", func(t *testing.T) {
		for _, s := range []string{"", "donation", "SALE"} {
			_, err := ParseTransactionType(s)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestParsePropertyIDMode(t *testing.T) {
	for _, s := range []string{"survey", "door"} {
		m, err := ParsePropertyIDMode(s)
		require.NoError(t, err)
		assert.True(t, m.IsValid())
	}
	_, err := ParsePropertyIDMode("plot")
	require.Error(t, err)
}
