package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/dimitrije/agency-api/internal/logging"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/policy"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	TenantIDHeader   = "X-Tenant-ID"
	TenantSlugHeader = "X-Tenant-Slug"

	MembershipKey = "tenant_membership"
	TenantKey     = "tenant"
)

type TenantResolver interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error)
}

// Tenant selects the tenant named by X-Tenant-ID or X-Tenant-Slug and loads
// the caller's membership in it. It must run after Auth.
func Tenant(tenants TenantResolver) drift.HandlerFunc {
	return func(c *drift.Context) {
		userID := GetUserID(c)
		if userID == uuid.Nil {
			c.Unauthorized("not authenticated")
			return
		}

		ctx := c.Request.Context()

		var (
			tenant *models.Tenant
			err    error
		)
		if raw := strings.TrimSpace(c.GetHeader(TenantIDHeader)); raw != "" {
			id, perr := uuid.Parse(raw)
			if perr != nil {
				c.BadRequest("invalid tenant id")
				return
			}
			tenant, err = tenants.GetByID(ctx, id)
		} else if slug := strings.TrimSpace(c.GetHeader(TenantSlugHeader)); slug != "" {
			tenant, err = tenants.GetBySlug(ctx, strings.ToLower(slug))
		} else {
			c.BadRequest("missing tenant header")
			return
		}
		if errors.Is(err, services.ErrTenantNotFound) {
			c.NotFound("tenant not found")
			return
		}
		if err != nil {
			logging.FromContext(ctx).Error("resolve tenant", "error", err)
			c.InternalServerError("failed to resolve tenant")
			return
		}

		membership, err := tenants.GetMembership(ctx, tenant.ID, userID)
		if errors.Is(err, services.ErrNotTenantMember) {
			c.Forbidden("not a member of this tenant")
			return
		}
		if err != nil {
			logging.FromContext(ctx).Error("load membership", "error", err)
			c.InternalServerError("failed to load membership")
			return
		}

		c.Set(TenantKey, tenant)
		c.Set(MembershipKey, membership)

		logger := logging.FromContext(ctx).With("tenant_id", tenant.ID.String())
		c.Request = c.Request.WithContext(logging.WithContext(ctx, logger))

		c.Next()
	}
}

// GetMembership returns the membership loaded by Tenant, or nil outside a
// tenant route.
func GetMembership(c *drift.Context) *models.TenantUser {
	if v, ok := c.Get(MembershipKey); ok {
		if m, ok := v.(*models.TenantUser); ok {
			return m
		}
	}
	return nil
}

func GetTenant(c *drift.Context) *models.Tenant {
	if v, ok := c.Get(TenantKey); ok {
		if t, ok := v.(*models.Tenant); ok {
			return t
		}
	}
	return nil
}

// Require aborts with 403 unless the caller's membership allows action.
func Require(action policy.Action) drift.HandlerFunc {
	return func(c *drift.Context) {
		if !policy.Allow(GetMembership(c), action) {
			c.Forbidden("insufficient permissions")
			return
		}
		c.Next()
	}
}
