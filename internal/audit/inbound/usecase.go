package inbound

import (
	"context"

	"github.com/shandysiswandi/goverify/internal/audit/usecase"
)

type ucConsumer interface {
	ConsumeCodeIssued(ctx context.Context, in usecase.ConsumeCodeIssuedInput) error
	ConsumeVerificationCompleted(ctx context.Context, in usecase.ConsumeVerificationCompletedInput) error
}

type uc interface {
	ucConsumer

	ListArchives(ctx context.Context, in usecase.ListArchivesInput) (*usecase.ListArchivesOutput, error)
}
