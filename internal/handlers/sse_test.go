package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/sse"
	"github.com/dimitrije/agency-api/tests/testutil"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSSEHandler_Connect_StreamsNotifications(t *testing.T) {
	hub := new(testutil.MockStreamHub)
	m := member(models.RoleMember)

	registered := make(chan *sse.Client, 1)
	hub.On("Register", mock.Anything).Run(func(args mock.Arguments) {
		registered <- args.Get(0).(*sse.Client)
	})
	hub.On("Unregister", mock.Anything).Return()

	app := drift.New()
	app.Use(withMember(m))
	app.Get("/events", NewSSEHandler(hub).Connect)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		app.ServeHTTP(rec, req)
		close(done)
	}()

	var client *sse.Client
	select {
	case client = <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client was never registered")
	}
	assert.Equal(t, m.UserID, client.UserID)
	assert.Equal(t, m.TenantID, client.TenantID)

	client.Send <- []byte(`{"title":"Invoice paid"}`)
	// Give the handler a moment to write before the stream is torn down.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after the client went away")
	}

	body := rec.Body.String()
	assert.Contains(t, body, "event: system")
	assert.Contains(t, body, "connected")
	assert.Contains(t, body, "event: notification")
	assert.Contains(t, body, "Invoice paid")
	hub.AssertCalled(t, "Unregister", client)
}

func TestSSEHandler_Connect_RequiresMembership(t *testing.T) {
	hub := new(testutil.MockStreamHub)

	app := drift.New()
	app.Get("/events", NewSSEHandler(hub).Connect)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	hub.AssertNotCalled(t, "Register", mock.Anything)
}
