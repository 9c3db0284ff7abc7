package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "flowgate/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "flowgate")

	tokenString, err := svc.Generate("u-1", "approver", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := svc.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.ActorID)
	assert.Equal(t, "approver", claims.Role)
	assert.Equal(t, "flowgate", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	svc := NewService("test-signing-key", "flowgate")

	t.Run("expired token", func(t *testing.T) {
		tokenString, err := svc.Generate("u-1", "approver", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(tokenString)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("another-key", "flowgate")
		tokenString, err := other.Generate("u-1", "approver", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(tokenString)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
