package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestSignAndParseRoundtrip(t *testing.T) {
	tok, err := SignToken(testSecret, "S1", RoleStudent, time.Minute)
	require.NoError(t, err)

	claims, err := ParseAndValidateToken(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "S1", claims.UserID)
	assert.Equal(t, RoleStudent, claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := SignToken(testSecret, "S1", RoleStudent, time.Minute)
	require.NoError(t, err)

	_, err = ParseAndValidateToken("other-secret", tok)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tok, err := SignToken(testSecret, "S1", RoleStudent, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAndValidateToken(testSecret, tok)
	assert.Error(t, err)
}

func TestParseRejectsUnknownRole(t *testing.T) {
	tok, err := SignToken(testSecret, "S1", "superuser", time.Minute)
	require.NoError(t, err)

	_, err = ParseAndValidateToken(testSecret, tok)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParseBearerToken(t *testing.T) {
	tok, err := ParseBearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	_, err = ParseBearerToken("")
	assert.Error(t, err)

	_, err = ParseBearerToken("Basic abc")
	assert.Error(t, err)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleStudent))
	assert.True(t, ValidRole(RoleVendor))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("guest"))
}
