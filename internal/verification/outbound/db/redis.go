package db

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

// Records live in one hash per email; the conditional writes run as Lua so
// check and mutation are a single atomic step on the server.
var (
	saveNewCodeScript = redis.NewScript(`
local last = redis.call("HGET", KEYS[1], "last_sent_at")
if last and tonumber(last) > tonumber(ARGV[1]) then
    return 0
end

local id = redis.call("HGET", KEYS[1], "id")
local created = redis.call("HGET", KEYS[1], "created_at")
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1],
    "id", id or ARGV[2],
    "email", ARGV[3],
    "code_digest", ARGV[4],
    "expires_at", ARGV[5],
    "attempts", 0,
    "verified", 0,
    "last_sent_at", ARGV[6],
    "created_at", created or ARGV[6])
return 1
`)

	incrementAttemptsScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
    return -1
end
if redis.call("HGET", KEYS[1], "code_digest") ~= ARGV[1] then
    return -1
end
if redis.call("HGET", KEYS[1], "verified") == "1" then
    return -1
end
if tonumber(redis.call("HGET", KEYS[1], "attempts")) >= tonumber(ARGV[2]) then
    return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

	markVerifiedScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
    return 0
end
if redis.call("HGET", KEYS[1], "code_digest") ~= ARGV[1] then
    return 0
end
if redis.call("HGET", KEYS[1], "verified") == "1" then
    return 0
end
redis.call("HSET", KEYS[1], "verified", 1, "verified_at", ARGV[2])
return 1
`)
)

type Redis struct {
	client *redis.Client
	ins    instrument.Instrumentation
}

func NewRedis(client *redis.Client, ins instrument.Instrumentation) *Redis {
	return &Redis{client: client, ins: ins}
}

func (s *Redis) key(email string) string {
	return "verification:" + email
}

func (s *Redis) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.outbound.db").Start(ctx, name)
}

func (s *Redis) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Redis) FindByEmail(ctx context.Context, email string) (_ *entity.Verification, err error) {
	ctx, span := s.startSpan(ctx, "FindByEmail")
	defer func() { s.endSpan(span, err) }()

	fields, err := s.client.HGetAll(ctx, s.key(email)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, goerror.ErrNotFound
	}

	return recordFromFields(fields)
}

func (s *Redis) SaveNewCode(ctx context.Context, rec entity.Verification, resendCutoff time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "SaveNewCode")
	defer func() { s.endSpan(span, err) }()

	saved, err := saveNewCodeScript.Run(ctx, s.client,
		[]string{s.key(rec.Email)},
		resendCutoff.UnixMilli(),
		rec.ID,
		rec.Email,
		rec.CodeDigest,
		rec.ExpiresAt.UnixMilli(),
		rec.LastSentAt.UnixMilli(),
	).Int()
	if err != nil {
		return err
	}

	if saved == 0 {
		return goerror.ErrConflict
	}

	return nil
}

func (s *Redis) IncrementAttempts(ctx context.Context, email, digest string, maxAttempts int) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "IncrementAttempts")
	defer func() { s.endSpan(span, err) }()

	attempts, err := incrementAttemptsScript.Run(ctx, s.client,
		[]string{s.key(email)},
		digest,
		maxAttempts,
	).Int()
	if err != nil {
		return 0, err
	}

	if attempts < 0 {
		return 0, goerror.ErrConflict
	}

	return attempts, nil
}

func (s *Redis) MarkVerified(ctx context.Context, email, digest string, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "MarkVerified")
	defer func() { s.endSpan(span, err) }()

	marked, err := markVerifiedScript.Run(ctx, s.client,
		[]string{s.key(email)},
		digest,
		at.UnixMilli(),
	).Int()
	if err != nil {
		return err
	}

	if marked == 0 {
		return goerror.ErrConflict
	}

	return nil
}

func (s *Redis) DeleteByEmail(ctx context.Context, email string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteByEmail")
	defer func() { s.endSpan(span, err) }()

	return s.client.Del(ctx, s.key(email)).Err()
}

// Close releases the client connection.
func (s *Redis) Close() error {
	return s.client.Close()
}

func recordFromFields(fields map[string]string) (*entity.Verification, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, err
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, err
	}
	expiresAt, err := millisField(fields, "expires_at")
	if err != nil {
		return nil, err
	}
	lastSentAt, err := millisField(fields, "last_sent_at")
	if err != nil {
		return nil, err
	}
	createdAt, err := millisField(fields, "created_at")
	if err != nil {
		return nil, err
	}

	return &entity.Verification{
		ID:         id,
		Email:      fields["email"],
		CodeDigest: fields["code_digest"],
		ExpiresAt:  expiresAt,
		Attempts:   attempts,
		Verified:   fields["verified"] == "1",
		LastSentAt: lastSentAt,
		CreatedAt:  createdAt,
	}, nil
}

func millisField(fields map[string]string, name string) (time.Time, error) {
	ms, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
