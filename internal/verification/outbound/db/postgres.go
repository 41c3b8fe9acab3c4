package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

type Postgres struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewPostgres(conn *pgxpool.Pool, ins instrument.Instrumentation) *Postgres {
	return &Postgres{conn: conn, ins: ins}
}

// - 23505 unique violation → goerror.ErrConflict (a concurrent insert won)
// - no rows on a conditional write → goerror.ErrConflict (the condition failed)
func (s *Postgres) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

func (s *Postgres) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.outbound.db").Start(ctx, name)
}

func (s *Postgres) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (_ *entity.Verification, err error) {
	ctx, span := s.startSpan(ctx, "FindByEmail")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT id, email, code_digest, expires_at, attempts, verified, last_sent_at, created_at
		FROM verifications
		WHERE email = $1`

	var rec entity.Verification
	err = s.conn.QueryRow(ctx, query, email).Scan(
		&rec.ID,
		&rec.Email,
		&rec.CodeDigest,
		&rec.ExpiresAt,
		&rec.Attempts,
		&rec.Verified,
		&rec.LastSentAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &rec, nil
}

func (s *Postgres) SaveNewCode(ctx context.Context, rec entity.Verification, resendCutoff time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "SaveNewCode")
	defer func() { s.endSpan(span, err) }()

	// The id and created_at of an existing row are kept; a reissue replaces
	// the code material but not the record's identity.
	const query = `
		INSERT INTO verifications (id, email, code_digest, expires_at, attempts, verified, last_sent_at, created_at)
		VALUES ($1, $2, $3, $4, 0, FALSE, $5, $5)
		ON CONFLICT (email) DO UPDATE SET
			code_digest  = EXCLUDED.code_digest,
			expires_at   = EXCLUDED.expires_at,
			attempts     = 0,
			verified     = FALSE,
			verified_at  = NULL,
			last_sent_at = EXCLUDED.last_sent_at
		WHERE verifications.last_sent_at <= $6`

	tag, err := s.conn.Exec(ctx, query,
		rec.ID,
		rec.Email,
		rec.CodeDigest,
		rec.ExpiresAt,
		rec.LastSentAt,
		resendCutoff,
	)
	if err != nil {
		return s.mapError(err)
	}

	if tag.RowsAffected() == 0 {
		return goerror.ErrConflict
	}

	return nil
}

func (s *Postgres) IncrementAttempts(ctx context.Context, email, digest string, maxAttempts int) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "IncrementAttempts")
	defer func() { s.endSpan(span, err) }()

	const query = `
		UPDATE verifications
		SET attempts = attempts + 1
		WHERE email = $1 AND code_digest = $2 AND NOT verified AND attempts < $3
		RETURNING attempts`

	var attempts int
	err = s.conn.QueryRow(ctx, query, email, digest, maxAttempts).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, goerror.ErrConflict
	}
	if err != nil {
		return 0, s.mapError(err)
	}

	return attempts, nil
}

func (s *Postgres) MarkVerified(ctx context.Context, email, digest string, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "MarkVerified")
	defer func() { s.endSpan(span, err) }()

	const query = `
		UPDATE verifications
		SET verified = TRUE, verified_at = $3
		WHERE email = $1 AND code_digest = $2 AND NOT verified`

	tag, err := s.conn.Exec(ctx, query, email, digest, at)
	if err != nil {
		return s.mapError(err)
	}

	if tag.RowsAffected() == 0 {
		return goerror.ErrConflict
	}

	return nil
}

func (s *Postgres) DeleteByEmail(ctx context.Context, email string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteByEmail")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `DELETE FROM verifications WHERE email = $1`, email)
	return s.mapError(err)
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	s.conn.Close()
	return nil
}
