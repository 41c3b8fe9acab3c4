package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"

	"github.com/shandysiswandi/goverify/internal/audit/entity"
	"github.com/shandysiswandi/goverify/internal/pkg/blob"
	"github.com/shandysiswandi/goverify/internal/pkg/goroutine"
)

// maxPending bounds buffered records while the archive backend is down.
// Beyond it the oldest records are dropped.
const maxPending = 10000

func (s *Usecase) append(ctx context.Context, rec entity.Record) {
	s.mu.Lock()
	s.pending = append(s.pending, rec)
	if over := len(s.pending) - maxPending; over > 0 {
		slog.WarnContext(ctx, "audit buffer is full, dropping oldest records", "dropped", over)
		s.pending = s.pending[over:]
	}
	full := len(s.pending) >= s.batchSize()
	s.mu.Unlock()

	if full {
		if err := s.Flush(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to archive audit batch", "error", err)
		}
	}
}

// Flush writes every pending record as one JSON Lines object. A batch that
// cannot be written goes back on the buffer for the next attempt.
func (s *Usecase) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	lines := lo.Map(batch, func(rec entity.Record, _ int) []byte {
		line, err := json.Marshal(rec)
		if err != nil {
			slog.ErrorContext(ctx, "failed to marshal audit record", "error", err)
		}
		return line
	})
	body := append(bytes.Join(lo.Compact(lines), []byte("\n")), '\n')

	now := s.clock.Now().UTC()
	key := fmt.Sprintf("audit/%s/%s.jsonl", now.Format("2006/01/02"), s.uuid.Generate())

	b := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		_, perr := s.storage.Put(ctx, s.bucket(), key, bytes.NewReader(body), blob.PutOptions{
			Size:        int64(len(body)),
			ContentType: "application/x-ndjson",
		})
		if perr != nil {
			return retry.RetryableError(perr)
		}
		return nil
	})
	if err != nil {
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
		return err
	}

	slog.InfoContext(ctx, "archived audit batch", "key", key, "records", len(batch))
	return nil
}

// StartFlusher drains the buffer on an interval until ctx ends, then once
// more on the way out so shutdown does not lose records.
func (s *Usecase) StartFlusher(ctx context.Context, routine *goroutine.Manager) {
	routine.Go(ctx, func(pCtx context.Context) error {
		ticker := time.NewTicker(s.flushInterval())
		defer ticker.Stop()

		for {
			select {
			case <-pCtx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.Flush(flushCtx); err != nil {
					slog.Error("failed to archive audit batch on shutdown", "error", err)
				}
				return nil
			case <-ticker.C:
				if err := s.Flush(pCtx); err != nil {
					slog.ErrorContext(pCtx, "failed to archive audit batch", "error", err)
				}
			}
		}
	})
}
