package otp

import (
	"context"
	"sync"
	"time"
)

// ReplayGuard records consumed token nonces. Consume reports true the first
// time a nonce is seen; the record may be dropped after until.
type ReplayGuard interface {
	Consume(ctx context.Context, nonce string, until time.Time) (bool, error)
}

// MemoryReplayGuard is a process-local ReplayGuard. It only protects a single
// replica; multi-instance deployments use the Redis guard.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

type GuardOption func(*MemoryReplayGuard)

// WithGuardClock sets the clock used to prune expired nonces. It should match
// the verifier's clock.
func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *MemoryReplayGuard) {
		if now != nil {
			g.now = now
		}
	}
}

func NewMemoryReplayGuard(opts ...GuardOption) *MemoryReplayGuard {
	g := &MemoryReplayGuard{seen: make(map[string]time.Time), now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *MemoryReplayGuard) Consume(_ context.Context, nonce string, until time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for n, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, n)
		}
	}

	if _, ok := g.seen[nonce]; ok {
		return false, nil
	}
	g.seen[nonce] = until
	return true, nil
}
