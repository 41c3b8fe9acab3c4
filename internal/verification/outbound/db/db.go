// Package db persists verification records behind a driver-agnostic Store.
//
// Every driver enforces the same two conditions inside the store itself: a
// new code lands only when the stored last_sent_at is at or before the resend
// cutoff, and attempt/verify mutations apply only while the digest they were
// decided against is still the current one. Lost conditions surface as
// goerror.ErrConflict, absence as goerror.ErrNotFound; callers never parse
// driver error text.
package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// Store is the persistence contract for verification records.
type Store interface {
	// FindByEmail returns the record for a normalized email, or
	// goerror.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*entity.Verification, error)

	// SaveNewCode inserts the record, or overwrites it when the stored
	// last_sent_at is at or before resendCutoff. goerror.ErrConflict means a
	// concurrent or recent issuance won.
	SaveNewCode(ctx context.Context, rec entity.Verification, resendCutoff time.Time) error

	// IncrementAttempts adds one failed attempt while digest is still
	// current, the record unverified, and the count below maxAttempts, and
	// returns the new count. goerror.ErrConflict when any condition fails.
	IncrementAttempts(ctx context.Context, email, digest string, maxAttempts int) (int, error)

	// MarkVerified flips the record to verified while digest is still
	// current and the record unverified. goerror.ErrConflict otherwise.
	MarkVerified(ctx context.Context, email, digest string, at time.Time) error

	// DeleteByEmail removes the record. Deleting an absent record is not an
	// error; the compensating rollback path depends on that.
	DeleteByEmail(ctx context.Context, email string) error
}
