package identity

import (
	"context"
	"fmt"
	"sync"
)

// DiscoveryVerifier defers provider discovery until the first token is verified.
// A failed discovery is retried on the next call.
type DiscoveryVerifier struct {
	issuer   string
	audience string
	discover func(ctx context.Context, issuer, audience string) (Verifier, error)

	mu       sync.Mutex
	verifier Verifier
}

var _ Verifier = (*DiscoveryVerifier)(nil)

func NewDiscoveryVerifier(issuer, audience string) *DiscoveryVerifier {
	return &DiscoveryVerifier{
		issuer:   issuer,
		audience: audience,
		discover: func(ctx context.Context, issuer, audience string) (Verifier, error) {
			return NewOIDCVerifier(ctx, issuer, audience)
		},
	}
}

func (d *DiscoveryVerifier) Verify(ctx context.Context, rawIDToken string) (*Claims, error) {
	verifier, err := d.get(ctx)
	if err != nil {
		return nil, err
	}
	return verifier.Verify(ctx, rawIDToken)
}

func (d *DiscoveryVerifier) get(ctx context.Context) (Verifier, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.verifier != nil {
		return d.verifier, nil
	}
	verifier, err := d.discover(ctx, d.issuer, d.audience)
	if err != nil {
		return nil, fmt.Errorf("[DiscoveryVerifier.Verify] %w", err)
	}
	d.verifier = verifier
	return verifier, nil
}
