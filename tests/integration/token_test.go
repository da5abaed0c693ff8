package integration

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_Integration_StoreAndValidate(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	tokenHash := services.HashToken("my-refresh-token")

	require.NoError(t, svc.StoreRefreshToken(ctx, user.ID, tokenHash, time.Now().Add(24*time.Hour)))

	userID, err := svc.ValidateRefreshToken(ctx, tokenHash)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestTokenService_Integration_ValidateExpired(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	fixtures.CreateRefreshToken(t, user.ID, services.HashToken("expired-token"), time.Now().Add(-time.Hour))

	_, err := svc.ValidateRefreshToken(ctx, services.HashToken("expired-token"))
	assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)
}

func TestTokenService_Integration_Rotate(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	oldHash := services.HashToken("first")
	newHash := services.HashToken("second")
	fixtures.CreateRefreshToken(t, user.ID, oldHash, time.Now().Add(time.Hour))

	owner, err := svc.RotateRefreshToken(ctx, oldHash, newHash, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner)

	// The consumed token cannot be replayed.
	_, err = svc.RotateRefreshToken(ctx, oldHash, services.HashToken("third"), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)

	userID, err := svc.ValidateRefreshToken(ctx, newHash)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestTokenService_Integration_RotateExpired(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	fixtures.CreateRefreshToken(t, user.ID, services.HashToken("stale"), time.Now().Add(-time.Minute))

	_, err := svc.RotateRefreshToken(ctx, services.HashToken("stale"), services.HashToken("fresh"), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)

	// The replacement must not have been stored.
	_, err = svc.ValidateRefreshToken(ctx, services.HashToken("fresh"))
	assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)
}

func TestTokenService_Integration_RevokeRefreshToken(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	tokenHash := services.HashToken("to-be-revoked")
	fixtures.CreateRefreshToken(t, user.ID, tokenHash, time.Now().Add(24*time.Hour))

	require.NoError(t, svc.RevokeRefreshToken(ctx, tokenHash))

	_, err := svc.ValidateRefreshToken(ctx, tokenHash)
	assert.Error(t, err)
}

func TestTokenService_Integration_RevokeAllUserTokens(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	other := fixtures.CreateUser(t)
	expiresAt := time.Now().Add(24 * time.Hour)

	for _, raw := range []string{"token-1", "token-2", "token-3"} {
		fixtures.CreateRefreshToken(t, user.ID, services.HashToken(raw), expiresAt)
	}
	fixtures.CreateRefreshToken(t, other.ID, services.HashToken("other"), expiresAt)

	require.NoError(t, svc.RevokeAllUserTokens(ctx, user.ID))

	for _, raw := range []string{"token-1", "token-2", "token-3"} {
		_, err := svc.ValidateRefreshToken(ctx, services.HashToken(raw))
		assert.Error(t, err, raw)
	}
	_, err := svc.ValidateRefreshToken(ctx, services.HashToken("other"))
	assert.NoError(t, err)
}

func TestTokenService_Integration_CleanupExpired(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	fixtures.CreateRefreshToken(t, user.ID, services.HashToken("expired"), time.Now().Add(-time.Hour))
	fixtures.CreateRefreshToken(t, user.ID, services.HashToken("valid"), time.Now().Add(24*time.Hour))

	removed, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	userID, err := svc.ValidateRefreshToken(ctx, services.HashToken("valid"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}
