package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/goverify/internal/pkg/blob"
	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
)

type ListArchivesInput struct {
	Date  string `validate:"omitempty,datetime=2006-01-02"`
	Limit int32  `validate:"omitempty,min=1,max=200"`
}

type ArchiveItem struct {
	Key       string
	Size      int64
	UpdatedAt time.Time
	URL       string
}

type ListArchivesOutput struct {
	Prefix   string
	Archives []ArchiveItem
}

// ListArchives returns the archive objects under one day's prefix together
// with short-lived presigned download links, so operators never need bucket
// credentials. It defaults to today when no date is given.
func (s *Usecase) ListArchives(ctx context.Context, in ListArchivesInput) (*ListArchivesOutput, error) {
	ctx, span := s.startSpan(ctx, "ListArchives")
	defer span.End()

	if _, err := s.authenticatedAndAuthorized(ctx, "audit", "read"); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	day := s.clock.Now().UTC()
	if in.Date != "" {
		parsed, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return nil, goerror.NewInvalidInput(err)
		}
		day = parsed
	}

	limit := in.Limit
	if limit <= 0 {
		limit = 50
	}

	prefix := "audit/" + day.Format("2006/01/02") + "/"

	objects, err := s.storage.List(ctx, s.bucket(), prefix, blob.ListOptions{Limit: limit})
	if err != nil {
		slog.ErrorContext(ctx, "failed to list audit archives", "prefix", prefix, "error", err)
		return nil, goerror.NewServer(err)
	}

	items := make([]ArchiveItem, 0, len(objects))
	for _, obj := range objects {
		url, err := s.storage.PresignGet(ctx, s.bucket(), obj.Key, s.presignTTL())
		if err != nil {
			slog.ErrorContext(ctx, "failed to presign audit archive", "key", obj.Key, "error", err)
			return nil, goerror.NewServer(err)
		}

		items = append(items, ArchiveItem{
			Key:       obj.Key,
			Size:      obj.Size,
			UpdatedAt: obj.UpdatedAt,
			URL:       url,
		})
	}

	return &ListArchivesOutput{Prefix: prefix, Archives: items}, nil
}
