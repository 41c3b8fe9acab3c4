// Package idempotency deduplicates command handling across redeliveries.
//
// Message brokers redeliver; issuing a second verification code because the
// same command arrived twice would burn the user's resend window. A redis
// SetNX lock plus a terminal state records whether a key was already handled.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
	ErrAlreadyFailed     = errors.New("operation already failed")
	ErrInvalidState      = errors.New("invalid state")
)

// State describes what is known about a key at acquire time.
type State string

const (
	StateNone       State = "none"        // operation can proceed
	StateInProgress State = "in_progress" // another worker holds the key
	StateCompleted  State = "completed"   // already handled successfully
	StateFailed     State = "failed"      // already handled and failed
	StateError      State = "error"       // tracker failure
)

func (s State) String() string {
	return string(s)
}

// Idempotency coordinates exactly-once handling keyed by caller-chosen ids.
type Idempotency interface {
	Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error)
	MarkCompleted(ctx context.Context, key string, ttl time.Duration) error
	MarkFailed(ctx context.Context, key string, ttl time.Duration) error
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// StateTracker is the redis-backed Idempotency implementation.
type StateTracker struct {
	client *redis.Client
	prefix string
}

// New returns a StateTracker over the given redis client.
func New(client *redis.Client) *StateTracker {
	return &StateTracker{
		client: client,
		prefix: "idempotency:",
	}
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = time.Minute
)

// Option adjusts Exec behavior.
type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration sets how long the in-progress lock may be held.
func WithLockDuration(lockDuration time.Duration) Option {
	return func(o *execOptions) {
		o.lockDuration = lockDuration
	}
}

// WithStateTTL sets how long terminal states are remembered.
func WithStateTTL(stateTTL time.Duration) Option {
	return func(o *execOptions) {
		o.stateTTL = stateTTL
	}
}

// Acquire attempts to claim the key. StateNone means the caller owns it and
// should proceed; any other state reports what happened to a previous claim.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	fk := s.prefix + key

	// Two rounds: the key can expire between SetNX and Get.
	for range 2 {
		acquired, err := s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
		if err != nil {
			return StateError, err
		}
		if acquired {
			return StateNone, nil
		}

		result, err := s.client.Get(ctx, fk).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return StateError, err
		}

		switch result {
		case StateInProgress.String():
			return StateInProgress, nil
		case StateCompleted.String():
			return StateCompleted, nil
		case StateFailed.String():
			return StateFailed, nil
		default:
			return StateError, ErrInvalidState
		}
	}

	return StateError, ErrInvalidState
}

// MarkCompleted records that the key's operation finished successfully.
func (s *StateTracker) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateCompleted.String(), ttl).Err()
}

// MarkFailed records that the key's operation failed.
func (s *StateTracker) MarkFailed(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateFailed.String(), ttl).Err()
}

// Exec runs fn under the key's lock. Success is recorded as completed; on
// error the key is released so a redelivery can retry. Callers that decide a
// failure is permanent use MarkFailed to pin it. Keys already in a known
// state return the matching sentinel without running fn.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	execOpt := &execOptions{
		lockDuration: defaultLockDuration,
		stateTTL:     defaultStateTTL,
	}
	for _, opt := range opts {
		opt(execOpt)
	}
	if execOpt.lockDuration <= 0 {
		execOpt.lockDuration = defaultLockDuration
	}
	if execOpt.stateTTL <= 0 {
		execOpt.stateTTL = defaultStateTTL
	}

	state, err := s.Acquire(ctx, key, execOpt.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateFailed:
		return ErrAlreadyFailed
	}

	if err := fn(ctx); err != nil {
		// Best effort: an unreleased key falls back to the lock expiry.
		s.client.Del(ctx, s.prefix+key)
		return err
	}

	return s.MarkCompleted(ctx, key, execOpt.stateTTL)
}
