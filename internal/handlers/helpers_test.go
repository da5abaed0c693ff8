package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dimitrije/agency-api/internal/middleware"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/require"
)

// withUser stands in for Auth.
func withUser(id uuid.UUID, email string) drift.HandlerFunc {
	return func(c *drift.Context) {
		c.Set(middleware.UserIDKey, id)
		c.Set(middleware.UserEmailKey, email)
		c.Next()
	}
}

// withMember stands in for Auth followed by Tenant.
func withMember(m *models.TenantUser) drift.HandlerFunc {
	return func(c *drift.Context) {
		c.Set(middleware.UserIDKey, m.UserID)
		c.Set(middleware.UserEmailKey, "member@example.com")
		c.Set(middleware.MembershipKey, m)
		c.Set(middleware.TenantKey, &models.Tenant{ID: m.TenantID, Name: "Acme Studio", Slug: "acme"})
		c.Next()
	}
}

func member(role string) *models.TenantUser {
	return &models.TenantUser{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		UserID:     uuid.New(),
		Role:       role,
		HourlyRate: 50,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
