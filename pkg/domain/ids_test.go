package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "givebridge/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseDonationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseDonationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseDonationID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, DonationID(validUUID), id)
	})
}

// TestParseID_SecurityInvariants validates parsing rules at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE donations;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errUser := ParseUserID(validUUID)
		_, errDonation := ParseDonationID(validUUID)
		_, errNotification := ParseNotificationID(validUUID)
		require.NoError(t, errUser)
		require.NoError(t, errDonation)
		require.NoError(t, errNotification)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errUser := ParseUserID(input)
			_, errDonation := ParseDonationID(input)
			_, errNotification := ParseNotificationID(input)
			require.Error(t, errUser)
			require.Error(t, errDonation)
			require.Error(t, errNotification)
		})
	}
}

func TestTypedIDsSerializeAsStrings(t *testing.T) {
	donationID := NewDonationID()

	body, err := json.Marshal(struct {
		ID DonationID `json:"id"`
	}{ID: donationID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+donationID.String()+`"}`, string(body))

	var decoded struct {
		ID DonationID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, donationID, decoded.ID)
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"donor", "ngo", "admin"} {
		r, err := ParseRole(valid)
		require.NoError(t, err)
		assert.True(t, r.IsValid())
	}

	_, err := ParseRole("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	_, err = ParseRole("superuser")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestPrincipalValid(t *testing.T) {
	assert.True(t, Principal{ID: UserID(uuid.New()), Role: RoleNGO}.Valid())
	assert.False(t, Principal{Role: RoleNGO}.Valid())
	assert.False(t, Principal{ID: UserID(uuid.New()), Role: "guest"}.Valid())
}
