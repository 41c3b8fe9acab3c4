package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/goverify/internal/audit/entity"
)

func TestConsumeCodeIssuedBuffersRecord(t *testing.T) {
	// Arrange
	storage := &fakeBlob{}
	uc := newTestUsecase(t, storage, nil)
	in := ConsumeCodeIssuedInput{
		ID:         42,
		Email:      " User@Example.COM ",
		ExpiresAt:  testNow.Add(5 * time.Minute),
		ResendAt:   testNow.Add(time.Minute),
		OccurredAt: testNow.Add(-time.Second),
	}

	// Act
	err := uc.ConsumeCodeIssued(context.Background(), in)

	// Assert
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if storage.putAttempts != 0 {
		t.Fatal("expected the record to stay buffered below batch size")
	}

	if err := uc.Flush(context.Background()); err != nil {
		t.Fatalf("expected flush to succeed, got %v", err)
	}

	recs := flushedRecords(t, storage)
	if len(recs) != 1 {
		t.Fatalf("expected one record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Event != entity.EventCodeIssued || rec.RecordID != 42 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.EmailDigest != "digest:user@example.com" {
		t.Fatalf("expected a digest of the normalized email, got %q", rec.EmailDigest)
	}
	if !rec.OccurredAt.Equal(testNow.Add(-time.Second)) || !rec.ReceivedAt.Equal(testNow) {
		t.Fatalf("unexpected times %+v", rec)
	}
	if rec.Details["expires_at"] != "2025-06-01T10:05:00Z" || rec.Details["resend_at"] != "2025-06-01T10:01:00Z" {
		t.Fatalf("unexpected details %+v", rec.Details)
	}
}

func TestConsumeCodeIssuedDefaultsOccurredAt(t *testing.T) {
	// Arrange
	storage := &fakeBlob{}
	uc := newTestUsecase(t, storage, nil)

	// Act
	err := uc.ConsumeCodeIssued(context.Background(), ConsumeCodeIssuedInput{
		ID:        7,
		Email:     "user@example.com",
		ExpiresAt: testNow.Add(5 * time.Minute),
		ResendAt:  testNow.Add(time.Minute),
	})

	// Assert
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if err := uc.Flush(context.Background()); err != nil {
		t.Fatalf("expected flush to succeed, got %v", err)
	}

	recs := flushedRecords(t, storage)
	if len(recs) != 1 || !recs[0].OccurredAt.Equal(testNow) {
		t.Fatalf("expected occurred_at to fall back to now, got %+v", recs)
	}
}

func TestConsumeCodeIssuedDropsInvalidEvent(t *testing.T) {
	// Arrange
	storage := &fakeBlob{}
	uc := newTestUsecase(t, storage, nil)

	// Act
	err := uc.ConsumeCodeIssued(context.Background(), ConsumeCodeIssuedInput{
		ID:    9,
		Email: "not-an-email",
	})

	// Assert
	if err != nil {
		t.Fatalf("invalid events must be dropped without error, got %v", err)
	}
	if err := uc.Flush(context.Background()); err != nil {
		t.Fatalf("expected flush to succeed, got %v", err)
	}
	if storage.putAttempts != 0 {
		t.Fatal("expected nothing to be archived")
	}
}

func TestConsumeCodeIssuedFlushesFullBatch(t *testing.T) {
	// Arrange
	storage := &fakeBlob{}
	uc := newTestUsecase(t, storage, map[string]int{"modules.audit.batch_size": 2})

	// Act
	for i := range 2 {
		err := uc.ConsumeCodeIssued(context.Background(), ConsumeCodeIssuedInput{
			ID:        int64(i + 1),
			Email:     "user@example.com",
			ExpiresAt: testNow.Add(5 * time.Minute),
			ResendAt:  testNow.Add(time.Minute),
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	}

	// Assert
	if len(storage.puts) != 1 {
		t.Fatalf("expected a full batch to flush itself, got %d objects", len(storage.puts))
	}
	recs := flushedRecords(t, storage)
	if len(recs) != 2 || recs[0].RecordID != 1 || recs[1].RecordID != 2 {
		t.Fatalf("unexpected batch %+v", recs)
	}
}
