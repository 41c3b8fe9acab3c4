package inbound

import (
	"context"

	"github.com/shandysiswandi/goverify/internal/verification/usecase"
)

type ucConsumer interface {
	ConsumeVerificationRequest(ctx context.Context, in usecase.ConsumeVerificationRequestInput) error
}

type uc interface {
	ucConsumer

	RequestCode(ctx context.Context, in usecase.RequestCodeInput) error
	VerifyCode(ctx context.Context, in usecase.VerifyCodeInput) (*usecase.VerifyCodeOutput, error)
	CodeStatus(ctx context.Context, in usecase.CodeStatusInput) (*usecase.CodeStatusOutput, error)
	RevokeCode(ctx context.Context, in usecase.RevokeCodeInput) error
}
