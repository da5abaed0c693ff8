package dto

import (
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
)

type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	GlobalRole string    `json:"global_role,omitempty"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		AvatarURL:  u.AvatarURL,
		Provider:   u.Provider,
		GlobalRole: u.GlobalRole,
	}
}

type UpdateUserRequest struct {
	Name string `json:"name"`
}
