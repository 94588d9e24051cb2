package apikey_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalscan/backend/apikey"
)

func TestGenerate(t *testing.T) {
	userID := uuid.New()

	record, token, err := apikey.Generate(userID, "ci pipeline")
	require.NoError(t, err)

	assert.Equal(t, userID, record.UserID)
	assert.Equal(t, "ci pipeline", record.Label)
	assert.NotEqual(t, uuid.Nil, record.ID)

	parts := strings.Split(token, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, apikey.KeyScheme, parts[0])
	assert.Equal(t, record.Prefix, parts[1])

	// Only the digest is stored, never the secret itself.
	assert.NotContains(t, record.SecretHash, parts[2])
	assert.True(t, record.VerifySecret(parts[2]))
}

func TestGenerateUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		record, _, err := apikey.Generate(uuid.New(), "label")
		require.NoError(t, err)
		require.False(t, seen[record.Prefix], "prefix collision")
		seen[record.Prefix] = true
	}
}

func TestSplitToken(t *testing.T) {
	testCases := []struct {
		name   string
		token  string
		prefix string
		secret string
		err    error
	}{
		{
			name:   "well formed",
			token:  "vsk_abcd1234_deadbeefdeadbeef",
			prefix: "abcd1234",
			secret: "deadbeefdeadbeef",
		},
		{
			name:  "wrong scheme",
			token: "sk_abcd1234_deadbeef",
			err:   apikey.ErrKeyInvalid,
		},
		{
			name:  "missing secret",
			token: "vsk_abcd1234_",
			err:   apikey.ErrKeyInvalid,
		},
		{
			name:  "missing prefix",
			token: "vsk__deadbeef",
			err:   apikey.ErrKeyInvalid,
		},
		{
			name:  "too many segments",
			token: "vsk_a_b_c",
			err:   apikey.ErrKeyInvalid,
		},
		{
			name:  "empty",
			token: "",
			err:   apikey.ErrKeyInvalid,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prefix, secret, err := apikey.SplitToken(tc.token)
			if tc.err != nil {
				assert.Equal(t, tc.err, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.prefix, prefix)
			assert.Equal(t, tc.secret, secret)
		})
	}
}

func TestVerifySecret(t *testing.T) {
	_, token, err := apikey.Generate(uuid.New(), "label")
	require.NoError(t, err)

	record, token2, err := apikey.Generate(uuid.New(), "label")
	require.NoError(t, err)

	_, ownSecret, err := apikey.SplitToken(token2)
	require.NoError(t, err)
	_, otherSecret, err := apikey.SplitToken(token)
	require.NoError(t, err)

	assert.True(t, record.VerifySecret(ownSecret))
	assert.False(t, record.VerifySecret(otherSecret))
	assert.False(t, record.VerifySecret(""))
}

func TestUsable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	testCases := []struct {
		name   string
		key    apikey.Key
		usable bool
	}{
		{
			name:   "no expiry no revocation",
			key:    apikey.Key{},
			usable: true,
		},
		{
			name:   "future expiry",
			key:    apikey.Key{ExpiresAt: &future},
			usable: true,
		},
		{
			name:   "expired",
			key:    apikey.Key{ExpiresAt: &past},
			usable: false,
		},
		{
			name:   "revoked",
			key:    apikey.Key{RevokedAt: &past},
			usable: false,
		},
		{
			name:   "revoked with future expiry",
			key:    apikey.Key{ExpiresAt: &future, RevokedAt: &past},
			usable: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.usable, tc.key.Usable(now))
		})
	}
}

func TestTokenFormatIsScannable(t *testing.T) {
	_, token, err := apikey.Generate(uuid.New(), "label")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, fmt.Sprintf("%s_", apikey.KeyScheme)))
}
