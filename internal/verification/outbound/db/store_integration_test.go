//go:build integration

package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

func TestPostgresStoreConformance(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("goverify"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	if err := Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	runStoreConformance(t, NewPostgres(pool, instrument.NewNoop()))
}

func TestRedisStoreConformance(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}

	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	opt, err := goredis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	client := goredis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	runStoreConformance(t, NewRedis(client, instrument.NewNoop()))
}

func TestMongoStoreConformance(t *testing.T) {
	ctx := context.Background()

	ctr, err := testcontainers.Run(ctx, "mongo:7",
		testcontainers.WithExposedPorts("27017/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort(nat.Port("27017/tcp"))),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start mongo: %v", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, nat.Port("27017/tcp"))
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}

	uri := fmt.Sprintf("mongodb://%s/", net.JoinHostPort(host, port.Port()))
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	runStoreConformance(t, NewMongo(client.Database("goverify"), instrument.NewNoop()))
}

// The same behavioral contract runs against every backend. Conditional writes
// are where the drivers differ most, so those get the densest coverage.
func runStoreConformance(t *testing.T, store Store) {
	ctx := context.Background()

	record := func(email string, now time.Time) entity.Verification {
		return entity.Verification{
			ID:         101,
			Email:      email,
			CodeDigest: "digest-one",
			ExpiresAt:  now.Add(5 * time.Minute),
			LastSentAt: now,
			CreatedAt:  now,
		}
	}

	t.Run("missing email reports not found", func(t *testing.T) {
		_, err := store.FindByEmail(ctx, "missing@example.com")
		if !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("error = %v, want %v", err, goerror.ErrNotFound)
		}
	})

	t.Run("save then find round trips the record", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		rec := record("roundtrip@example.com", now)

		if err := store.SaveNewCode(ctx, rec, now); err != nil {
			t.Fatalf("save: %v", err)
		}

		got, err := store.FindByEmail(ctx, rec.Email)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.ID != rec.ID {
			t.Fatalf("ID = %d, want %d", got.ID, rec.ID)
		}
		if got.Email != rec.Email {
			t.Fatalf("Email = %q, want %q", got.Email, rec.Email)
		}
		if got.CodeDigest != rec.CodeDigest {
			t.Fatalf("CodeDigest = %q, want %q", got.CodeDigest, rec.CodeDigest)
		}
		if got.Attempts != 0 {
			t.Fatalf("Attempts = %d, want 0", got.Attempts)
		}
		if got.Verified {
			t.Fatal("Verified = true, want false")
		}
		if !got.ExpiresAt.Equal(rec.ExpiresAt) {
			t.Fatalf("ExpiresAt = %v, want %v", got.ExpiresAt, rec.ExpiresAt)
		}
		if !got.LastSentAt.Equal(rec.LastSentAt) {
			t.Fatalf("LastSentAt = %v, want %v", got.LastSentAt, rec.LastSentAt)
		}
		if !got.CreatedAt.Equal(rec.LastSentAt) {
			t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, rec.LastSentAt)
		}
	})

	t.Run("reissue during cooldown loses to the stored row", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		rec := record("cooldown@example.com", now)
		if err := store.SaveNewCode(ctx, rec, now); err != nil {
			t.Fatalf("save: %v", err)
		}

		reissue := rec
		reissue.CodeDigest = "digest-two"
		reissue.LastSentAt = now.Add(30 * time.Second)

		err := store.SaveNewCode(ctx, reissue, now.Add(-30*time.Second))
		if !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("error = %v, want %v", err, goerror.ErrConflict)
		}

		got, err := store.FindByEmail(ctx, rec.Email)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.CodeDigest != "digest-one" {
			t.Fatalf("CodeDigest = %q, want digest-one", got.CodeDigest)
		}
	})

	t.Run("reissue after cooldown replaces code and keeps identity", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		first := record("reissue@example.com", now.Add(-2*time.Minute))
		if err := store.SaveNewCode(ctx, first, now); err != nil {
			t.Fatalf("save first: %v", err)
		}
		for i := 1; i <= 2; i++ {
			if _, err := store.IncrementAttempts(ctx, first.Email, first.CodeDigest, 5); err != nil {
				t.Fatalf("increment: %v", err)
			}
		}

		reissue := entity.Verification{
			ID:         202,
			Email:      first.Email,
			CodeDigest: "digest-two",
			ExpiresAt:  now.Add(5 * time.Minute),
			LastSentAt: now,
			CreatedAt:  now,
		}

		if err := store.SaveNewCode(ctx, reissue, now.Add(-time.Minute)); err != nil {
			t.Fatalf("save reissue: %v", err)
		}

		got, err := store.FindByEmail(ctx, first.Email)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.ID != first.ID {
			t.Fatalf("ID = %d, want %d", got.ID, first.ID)
		}
		if got.CodeDigest != "digest-two" {
			t.Fatalf("CodeDigest = %q, want digest-two", got.CodeDigest)
		}
		if got.Attempts != 0 {
			t.Fatalf("Attempts = %d, want 0", got.Attempts)
		}
		if !got.CreatedAt.Equal(first.CreatedAt) {
			t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, first.CreatedAt)
		}
	})

	t.Run("attempts stop at the cap", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		rec := record("attempts@example.com", now)
		if err := store.SaveNewCode(ctx, rec, now); err != nil {
			t.Fatalf("save: %v", err)
		}

		for i := 1; i <= 5; i++ {
			n, err := store.IncrementAttempts(ctx, rec.Email, rec.CodeDigest, 5)
			if err != nil {
				t.Fatalf("increment %d: %v", i, err)
			}
			if n != i {
				t.Fatalf("attempts = %d, want %d", n, i)
			}
		}

		if _, err := store.IncrementAttempts(ctx, rec.Email, rec.CodeDigest, 5); !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("error = %v, want %v", err, goerror.ErrConflict)
		}

		got, err := store.FindByEmail(ctx, rec.Email)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Attempts != 5 {
			t.Fatalf("Attempts = %d, want 5", got.Attempts)
		}
	})

	t.Run("increment is pinned to the issued code", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		rec := record("pinned@example.com", now)
		if err := store.SaveNewCode(ctx, rec, now); err != nil {
			t.Fatalf("save: %v", err)
		}

		if _, err := store.IncrementAttempts(ctx, rec.Email, "stale-digest", 5); !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("error = %v, want %v", err, goerror.ErrConflict)
		}

		got, err := store.FindByEmail(ctx, rec.Email)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Attempts != 0 {
			t.Fatalf("Attempts = %d, want 0", got.Attempts)
		}
	})

	t.Run("mark verified wins exactly once", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		rec := record("verify@example.com", now)
		if err := store.SaveNewCode(ctx, rec, now); err != nil {
			t.Fatalf("save: %v", err)
		}

		if err := store.MarkVerified(ctx, rec.Email, rec.CodeDigest, now.Add(time.Minute)); err != nil {
			t.Fatalf("mark: %v", err)
		}

		got, err := store.FindByEmail(ctx, rec.Email)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if !got.Verified {
			t.Fatal("Verified = false, want true")
		}

		if err := store.MarkVerified(ctx, rec.Email, rec.CodeDigest, now.Add(time.Minute)); !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("second mark error = %v, want %v", err, goerror.ErrConflict)
		}
		if _, err := store.IncrementAttempts(ctx, rec.Email, rec.CodeDigest, 5); !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("increment after verify error = %v, want %v", err, goerror.ErrConflict)
		}
	})

	t.Run("mark verified is pinned to the issued code", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		rec := record("verifypin@example.com", now)
		if err := store.SaveNewCode(ctx, rec, now); err != nil {
			t.Fatalf("save: %v", err)
		}

		if err := store.MarkVerified(ctx, rec.Email, "stale-digest", now); !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("error = %v, want %v", err, goerror.ErrConflict)
		}

		got, err := store.FindByEmail(ctx, rec.Email)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Verified {
			t.Fatal("Verified = true, want false")
		}
	})

	t.Run("reissue resets a verified record", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		rec := record("reverify@example.com", now.Add(-2*time.Minute))
		if err := store.SaveNewCode(ctx, rec, now); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := store.MarkVerified(ctx, rec.Email, rec.CodeDigest, now.Add(-time.Minute)); err != nil {
			t.Fatalf("mark: %v", err)
		}

		reissue := entity.Verification{
			ID:         303,
			Email:      rec.Email,
			CodeDigest: "digest-two",
			ExpiresAt:  now.Add(5 * time.Minute),
			LastSentAt: now,
			CreatedAt:  now,
		}
		if err := store.SaveNewCode(ctx, reissue, now.Add(-time.Minute)); err != nil {
			t.Fatalf("save reissue: %v", err)
		}

		got, err := store.FindByEmail(ctx, rec.Email)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Verified {
			t.Fatal("Verified = true, want false after reissue")
		}
		if got.CodeDigest != "digest-two" {
			t.Fatalf("CodeDigest = %q, want digest-two", got.CodeDigest)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		rec := record("delete@example.com", now)
		if err := store.SaveNewCode(ctx, rec, now); err != nil {
			t.Fatalf("save: %v", err)
		}

		if err := store.DeleteByEmail(ctx, rec.Email); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := store.FindByEmail(ctx, rec.Email); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("error = %v, want %v", err, goerror.ErrNotFound)
		}
		if err := store.DeleteByEmail(ctx, rec.Email); err != nil {
			t.Fatalf("second delete: %v", err)
		}
	})
}
