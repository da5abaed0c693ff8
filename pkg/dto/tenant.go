package dto

import (
	"time"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
)

type CreateTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type TenantResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewTenantResponse(t *models.Tenant, role string) TenantResponse {
	return TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		OwnerID:   t.OwnerID,
		Role:      role,
		CreatedAt: t.CreatedAt,
	}
}

type MemberResponse struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"user_id"`
	RoleID     uuid.UUID     `json:"role_id"`
	Role       string        `json:"role"`
	HourlyRate float64       `json:"hourly_rate"`
	JoinedAt   time.Time     `json:"joined_at"`
	User       *UserResponse `json:"user,omitempty"`
}

func NewMemberResponse(m *models.TenantUser) MemberResponse {
	resp := MemberResponse{
		ID:         m.ID,
		UserID:     m.UserID,
		RoleID:     m.RoleID,
		Role:       m.Role,
		HourlyRate: m.HourlyRate,
		JoinedAt:   m.CreatedAt,
	}
	if m.User != nil {
		u := NewUserResponse(m.User)
		resp.User = &u
	}
	return resp
}

type UpdateMemberRequest struct {
	RoleID     *uuid.UUID `json:"role_id"`
	HourlyRate *float64   `json:"hourly_rate"`
}

type RoleResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}
