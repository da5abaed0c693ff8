package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/policy"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/assert"
)

type fakeTenants struct {
	tenant  *models.Tenant
	members map[uuid.UUID]*models.TenantUser
}

func (f *fakeTenants) GetByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	if f.tenant == nil || f.tenant.ID != id {
		return nil, services.ErrTenantNotFound
	}
	return f.tenant, nil
}

func (f *fakeTenants) GetBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	if f.tenant == nil || f.tenant.Slug != slug {
		return nil, services.ErrTenantNotFound
	}
	return f.tenant, nil
}

func (f *fakeTenants) GetMembership(_ context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error) {
	m, ok := f.members[userID]
	if !ok || m.TenantID != tenantID {
		return nil, services.ErrNotTenantMember
	}
	return m, nil
}

func withUser(id uuid.UUID) drift.HandlerFunc {
	return func(c *drift.Context) {
		c.Set(UserIDKey, id)
		c.Next()
	}
}

func tenantFixture() (*fakeTenants, uuid.UUID, uuid.UUID) {
	tenant := &models.Tenant{ID: uuid.New(), Name: "Acme", Slug: "acme"}
	admin := uuid.New()
	member := uuid.New()
	return &fakeTenants{
		tenant: tenant,
		members: map[uuid.UUID]*models.TenantUser{
			admin:  {TenantID: tenant.ID, UserID: admin, Role: models.RoleAdmin},
			member: {TenantID: tenant.ID, UserID: member, Role: models.RoleMember},
		},
	}, admin, member
}

func TestTenant_Resolution(t *testing.T) {
	tenants, admin, _ := tenantFixture()
	stranger := uuid.New()

	tests := []struct {
		name    string
		user    uuid.UUID
		headers map[string]string
		status  int
	}{
		{"by id", admin, map[string]string{TenantIDHeader: tenants.tenant.ID.String()}, http.StatusOK},
		{"by slug", admin, map[string]string{TenantSlugHeader: "ACME"}, http.StatusOK},
		{"no header", admin, nil, http.StatusBadRequest},
		{"malformed id", admin, map[string]string{TenantIDHeader: "nope"}, http.StatusBadRequest},
		{"unknown tenant", admin, map[string]string{TenantIDHeader: uuid.NewString()}, http.StatusNotFound},
		{"unknown slug", admin, map[string]string{TenantSlugHeader: "globex"}, http.StatusNotFound},
		{"not a member", stranger, map[string]string{TenantSlugHeader: "acme"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *models.TenantUser
			app := drift.New()
			app.Use(withUser(tt.user))
			app.Use(Tenant(tenants))
			app.Get("/scoped", func(c *drift.Context) {
				got = GetMembership(c)
				_ = c.JSON(http.StatusOK, nil)
			})

			req := httptest.NewRequest(http.MethodGet, "/scoped", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				if assert.NotNil(t, got) {
					assert.Equal(t, tt.user, got.UserID)
				}
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestTenant_RequiresAuthenticatedUser(t *testing.T) {
	tenants, _, _ := tenantFixture()
	app := drift.New()
	app.Use(Tenant(tenants))
	app.Get("/scoped", func(c *drift.Context) { _ = c.JSON(http.StatusOK, nil) })

	req := httptest.NewRequest(http.MethodGet, "/scoped", nil)
	req.Header.Set(TenantSlugHeader, "acme")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequire(t *testing.T) {
	tenants, admin, member := tenantFixture()

	for _, tc := range []struct {
		user   uuid.UUID
		status int
	}{
		{admin, http.StatusOK},
		{member, http.StatusForbidden},
	} {
		app := drift.New()
		app.Use(withUser(tc.user))
		app.Use(Tenant(tenants))
		billing := app.Group("/billing")
		billing.Use(Require(policy.ManageBilling))
		billing.Get("/report", func(c *drift.Context) {
			_ = c.JSON(http.StatusOK, nil)
		})

		req := httptest.NewRequest(http.MethodGet, "/billing/report", nil)
		req.Header.Set(TenantSlugHeader, "acme")
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)

		assert.Equal(t, tc.status, rec.Code)
	}
}
