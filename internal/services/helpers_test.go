package services

import (
	"context"
	"sync"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []NotifyParams
}

func (n *recordingNotifier) NotifyBestEffort(_ context.Context, p NotifyParams) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p.RecipientID == p.ActorID {
		return
	}
	n.calls = append(n.calls, p)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.calls))
	for _, c := range n.calls {
		out = append(out, c.Type)
	}
	return out
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []InvitationEmail
	err  error
}

func (m *fakeMailer) SendInvitation(_ context.Context, e InvitationEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, e)
	return nil
}
