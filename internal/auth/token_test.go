package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clared/storefront/internal/domain/user"
)

func testUser() *user.User {
	return &user.User{ID: "u1", Email: "admin@clared.test", Role: user.RoleAdmin}
}

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"))

	signed, err := tokens.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, user.RoleAdmin, claims.Role)
}

func TestVerify_WrongSecret(t *testing.T) {
	signed, err := NewTokens([]byte("secret-a")).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokens([]byte("secret-b")).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewTokens([]byte("s")).Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"))
	issued := time.Now().Add(-2 * TokenTTL)
	tokens.now = func() time.Time { return issued }

	signed, err := tokens.Issue(testUser())
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
