package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderInvitations_EffectiveStatus(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	project := "Website"
	list := []models.Invitation{
		{ID: uuid.New(), Email: "late@example.com", Role: "member", Status: models.InvitationPending, ExpiresAt: now.Add(-time.Hour)},
		{ID: uuid.New(), Email: "open@example.com", Role: "admin", Status: models.InvitationPending, ExpiresAt: now.Add(time.Hour), ProjectName: &project},
	}

	var buf bytes.Buffer
	renderInvitations(&buf, list, now)
	out := buf.String()

	assert.Contains(t, out, "late@example.com")
	assert.Contains(t, out, models.InvitationExpired)
	assert.Contains(t, out, "Website")
}

func TestRenderTenants(t *testing.T) {
	tenants := []models.Tenant{
		{ID: uuid.New(), Slug: "acme", Name: "Acme Studio", OwnerID: uuid.New()},
		{ID: uuid.New(), Slug: "globex", Name: "Globex", OwnerID: uuid.New()},
	}

	var buf bytes.Buffer
	renderTenants(&buf, tenants)

	assert.Contains(t, buf.String(), "acme")
	assert.Contains(t, buf.String(), "Globex")
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"migrate", "promote-admin", "tenants", "invitations"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	inv, _, err := root.Find([]string{"invitations"})
	require.NoError(t, err)
	assert.NotNil(t, inv.Flags().Lookup("tenant"))
}

func TestPromoteAdmin_RequiresEmail(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"promote-admin"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	assert.Error(t, root.Execute())
}
