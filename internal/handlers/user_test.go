package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/dimitrije/agency-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func userRoutes(h *UserHandler, userID uuid.UUID) http.Handler {
	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(withUser(userID, "ana@example.com"))
	app.Get("/users/me", h.GetMe)
	app.Patch("/users/me", h.UpdateMe)
	return app
}

func TestUserHandler_GetMe(t *testing.T) {
	users := new(testutil.MockUserService)
	user := testUser()
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	rec := do(t, userRoutes(NewUserHandler(users), user.ID), http.MethodGet, "/users/me", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[dto.UserResponse](t, rec)
	assert.Equal(t, user.ID, resp.ID)
	assert.Equal(t, "ana@example.com", resp.Email)
	users.AssertExpectations(t)
}

func TestUserHandler_GetMe_Unauthenticated(t *testing.T) {
	rec := do(t, userRoutes(NewUserHandler(new(testutil.MockUserService)), uuid.Nil), http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserHandler_GetMe_NotFound(t *testing.T) {
	users := new(testutil.MockUserService)
	id := uuid.New()
	users.On("GetByID", mock.Anything, id).Return(nil, errors.New("no rows"))

	rec := do(t, userRoutes(NewUserHandler(users), id), http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserHandler_UpdateMe(t *testing.T) {
	tests := []struct {
		name   string
		body   dto.UpdateUserRequest
		status int
		call   bool
	}{
		{name: "trims name", body: dto.UpdateUserRequest{Name: "  Ana Lee "}, status: http.StatusOK, call: true},
		{name: "blank name", body: dto.UpdateUserRequest{Name: "   "}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(testutil.MockUserService)
			id := uuid.New()
			if tt.call {
				users.On("Update", mock.Anything, id, "Ana Lee").
					Return(&models.User{ID: id, Email: "ana@example.com", Name: "Ana Lee"}, nil)
			}

			rec := do(t, userRoutes(NewUserHandler(users), id), http.MethodPatch, "/users/me", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			users.AssertExpectations(t)
		})
	}
}
