package db

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

const (
	// DriverPostgres selects the postgres store.
	DriverPostgres = "postgres"
	// DriverRedis selects the redis store.
	DriverRedis = "redis"
	// DriverMongo selects the mongo store.
	DriverMongo = "mongo"
)

// Provider is a Store that dials its backend on first use instead of at
// construction. The handle is shared across requests once established; a
// failed dial is retried on the next call rather than cached forever.
type Provider struct {
	dial func(ctx context.Context) (Store, error)

	mu    sync.Mutex
	store Store
}

// NewProvider wraps a dial function. Construction never fails; dial errors
// surface from the first operation that needs the backend.
func NewProvider(dial func(ctx context.Context) (Store, error)) *Provider {
	return &Provider{dial: dial}
}

func (p *Provider) get(ctx context.Context) (Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store != nil {
		return p.store, nil
	}

	store, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}

	p.store = store
	return store, nil
}

func (p *Provider) FindByEmail(ctx context.Context, email string) (*entity.Verification, error) {
	store, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	return store.FindByEmail(ctx, email)
}

func (p *Provider) SaveNewCode(ctx context.Context, rec entity.Verification, resendCutoff time.Time) error {
	store, err := p.get(ctx)
	if err != nil {
		return err
	}
	return store.SaveNewCode(ctx, rec, resendCutoff)
}

func (p *Provider) IncrementAttempts(ctx context.Context, email, digest string, maxAttempts int) (int, error) {
	store, err := p.get(ctx)
	if err != nil {
		return 0, err
	}
	return store.IncrementAttempts(ctx, email, digest, maxAttempts)
}

func (p *Provider) MarkVerified(ctx context.Context, email, digest string, at time.Time) error {
	store, err := p.get(ctx)
	if err != nil {
		return err
	}
	return store.MarkVerified(ctx, email, digest, at)
}

func (p *Provider) DeleteByEmail(ctx context.Context, email string) error {
	store, err := p.get(ctx)
	if err != nil {
		return err
	}
	return store.DeleteByEmail(ctx, email)
}

// Close releases the dialed backend. A provider that never dialed has
// nothing to release.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	store := p.store
	p.store = nil

	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
