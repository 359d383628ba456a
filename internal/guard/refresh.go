package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/medisync/caregate/internal/cookies"
	"github.com/medisync/caregate/internal/token"
)

// RefreshClient is the upstream exchange for new access credentials
type RefreshClient interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*cookies.Credential, error)
}

// flight is one in-progress refresh exchange; waiters share its outcome
type flight struct {
	done chan struct{}
	cred *cookies.Credential
	err  error
}

// Refresher exchanges refresh tokens for access credentials. Concurrent
// requests holding the same refresh token collapse into a single upstream
// call; the exchange is idempotent so this is an optimization, not a
// correctness requirement.
type Refresher struct {
	upstream RefreshClient
	revoked  *token.RevocationList

	mu      sync.Mutex
	flights map[string]*flight
}

// NewRefresher creates a refresher. revoked may be nil to skip revocation
// checks (tests).
func NewRefresher(upstream RefreshClient, revoked *token.RevocationList) *Refresher {
	return &Refresher{
		upstream: upstream,
		revoked:  revoked,
		flights:  make(map[string]*flight),
	}
}

// Refresh obtains a new access credential for the given refresh token.
// Revoked tokens fail without touching the upstream.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*cookies.Credential, error) {
	if r.revoked != nil {
		revoked, err := r.revoked.IsRevoked(ctx, refreshToken)
		if err == nil && revoked {
			return nil, token.ErrTokenInvalid
		}
		// On a revocation-list error the exchange proceeds; the upstream
		// still holds the final word on the token.
	}

	key := flightKey(refreshToken)

	r.mu.Lock()
	if f, ok := r.flights[key]; ok {
		r.mu.Unlock()
		select {
		case <-f.done:
			return f.cred, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	r.flights[key] = f
	r.mu.Unlock()

	f.cred, f.err = r.upstream.RefreshAccessToken(ctx, refreshToken)
	close(f.done)

	r.mu.Lock()
	delete(r.flights, key)
	r.mu.Unlock()

	return f.cred, f.err
}

func flightKey(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}
