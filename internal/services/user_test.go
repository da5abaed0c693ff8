package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/oauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{
	"id", "email", "name", "avatar_url", "provider", "provider_id", "global_role", "created_at", "updated_at",
}

func setupUserService(t *testing.T) (*UserService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewUserService(db), mock
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}

func TestUserService_FindOrCreateFromOAuth_CreateNew(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	info := &oauth.UserInfo{
		Email:     "New@Example.com",
		Name:      "New User",
		AvatarURL: "https://example.com/avatar.png",
		ID:        "provider-123",
		Provider:  "github",
	}
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnError(pgx.ErrNoRows)

	rows := pgxmock.NewRows(userCols).
		AddRow(userID, "new@example.com", info.Name, &info.AvatarURL, info.Provider, info.ID, models.GlobalRoleUser, now, now)
	mock.ExpectQuery(`INSERT INTO users .+ ON CONFLICT \(email\)`).
		WithArgs("new@example.com", info.Name, &info.AvatarURL, info.Provider, info.ID).
		WillReturnRows(rows)

	user, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "new@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_FindOrCreateFromOAuth_FindExisting(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	avatarURL := "https://example.com/avatar.png"
	info := &oauth.UserInfo{
		Email:     "existing@example.com",
		Name:      "Existing User",
		AvatarURL: avatarURL,
		ID:        "provider-456",
		Provider:  "gitlab",
	}
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(userCols).
		AddRow(userID, info.Email, info.Name, &avatarURL, info.Provider, info.ID, models.GlobalRoleUser, now, now)
	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnRows(rows)

	user, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_FindOrCreateFromOAuth_UpdateExisting(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	info := &oauth.UserInfo{
		Email:     "Updated@example.com",
		Name:      "Updated Name",
		AvatarURL: "https://example.com/new-avatar.png",
		ID:        "provider-789",
		Provider:  "github",
	}
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(userCols).
		AddRow(userID, "old@example.com", "Old Name", nil, info.Provider, info.ID, models.GlobalRoleUser, now, now)
	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnRows(rows)

	mock.ExpectExec(`UPDATE users SET email = .+, name = .+, avatar_url`).
		WithArgs("updated@example.com", info.Name, &info.AvatarURL, userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	user, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.Equal(t, "updated@example.com", user.Email)
	assert.Equal(t, info.Name, user.Name)
	require.NotNil(t, user.AvatarURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(context.Background(), userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByEmail_Normalizes(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("jane@example.com").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(userID, "jane@example.com", "Jane", nil, "google", "g-1", models.GlobalRoleUser, now, now))

	user, err := svc.GetByEmail(context.Background(), "JANE@example.com")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Update(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE users SET name`).
		WithArgs("Renamed", userID).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(userID, "a@example.com", "Renamed", nil, "github", "1", models.GlobalRoleUser, now, now))

	user, err := svc.Update(context.Background(), userID, "Renamed")

	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_SetGlobalRole(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectExec(`UPDATE users SET global_role`).
		WithArgs(models.GlobalRoleSuperAdmin, "boss@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET global_role`).
		WithArgs(models.GlobalRoleSuperAdmin, "ghost@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, svc.SetGlobalRole(context.Background(), "Boss@example.com", models.GlobalRoleSuperAdmin))
	assert.ErrorIs(t, svc.SetGlobalRole(context.Background(), "ghost@example.com", models.GlobalRoleSuperAdmin), ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
