package payment

import (
	"context"
	"fmt"
	"sync"
)

// StaticProvider is an in-process provider for development and tests. It
// serves sessions from a seeded table and accepts every refund for a paid
// session.
type StaticProvider struct {
	mu       sync.Mutex
	sessions map[string]*Session
	refunds  int64

	// FailRefunds makes Refund return ErrUnavailable, for exercising the
	// decision-revert path.
	FailRefunds bool
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{sessions: make(map[string]*Session)}
}

// Seed registers a session the provider will report.
func (p *StaticProvider) Seed(s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := s
	p.sessions[s.ID] = &copied
}

func (p *StaticProvider) VerifySession(ctx context.Context, sessionID string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (p *StaticProvider) Refund(ctx context.Context, sessionID string, amountCents int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailRefunds {
		return "", ErrUnavailable
	}
	s, ok := p.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	if !s.Paid {
		return "", ErrRefundRejected
	}
	p.refunds++
	return fmt.Sprintf("re_static_%d", p.refunds), nil
}
