package integration

import (
	"context"
	"testing"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Integration_FindOrCreateFromOAuth_CreateNew(t *testing.T) {
	tdb := setupTest(t)
	svc := services.NewUserService(tdb.DB)
	ctx := context.Background()

	info := testutil.OAuthUserInfo("NewUser@Example.com", "New User", "github", "github-12345")

	user, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "newuser@example.com", user.Email)
	assert.Equal(t, "New User", user.Name)
	assert.Equal(t, "github", user.Provider)
	assert.Equal(t, "github-12345", user.ProviderID)
	assert.Equal(t, models.GlobalRoleUser, user.GlobalRole)
}

func TestUserService_Integration_FindOrCreateFromOAuth_FindExisting(t *testing.T) {
	tdb := setupTest(t)
	svc := services.NewUserService(tdb.DB)
	ctx := context.Background()

	info := testutil.OAuthUserInfo("existing@example.com", "Existing User", "github", "github-99999")

	user1, err := svc.FindOrCreateFromOAuth(ctx, info)
	require.NoError(t, err)

	info.Name = "Renamed"
	user2, err := svc.FindOrCreateFromOAuth(ctx, info)
	require.NoError(t, err)

	assert.Equal(t, user1.ID, user2.ID)
	assert.Equal(t, "Renamed", user2.Name)
}

func TestUserService_Integration_FindOrCreateFromOAuth_LinksByEmail(t *testing.T) {
	tdb := setupTest(t)
	svc := services.NewUserService(tdb.DB)
	ctx := context.Background()

	first, err := svc.FindOrCreateFromOAuth(ctx, testutil.OAuthUserInfo("shared@example.com", "Shared", "github", "gh-1"))
	require.NoError(t, err)

	second, err := svc.FindOrCreateFromOAuth(ctx, testutil.OAuthUserInfo("shared@example.com", "Shared", "google", "g-1"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "google", second.Provider)
}

func TestUserService_Integration_GetByEmail(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewUserService(tdb.DB)
	ctx := context.Background()

	created := fixtures.CreateUser(t, testutil.WithEmail("lookup@example.com"))

	user, err := svc.GetByEmail(ctx, "  LOOKUP@example.com ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestUserService_Integration_UpdateAndPromote(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewUserService(tdb.DB)
	ctx := context.Background()

	created := fixtures.CreateUser(t, testutil.WithEmail("admin@example.com"))

	updated, err := svc.Update(ctx, created.ID, "New Name")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	require.NoError(t, svc.SetGlobalRole(ctx, "admin@example.com", models.GlobalRoleSuperAdmin))

	user, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GlobalRoleSuperAdmin, user.GlobalRole)
}
