package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/goverify/internal/audit/usecase"
	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/pkg/messaging"
	"github.com/shandysiswandi/goverify/internal/pkg/uid"
	"github.com/shandysiswandi/goverify/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	for i := range headers {
		if headers[i].Key == keyOfCorrelationID {
			return instrument.SetCorrelationID(ctx, string(headers[i].Value))
		}
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) CodeIssuedAudit(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("audit.inbound.mq").Start(ctx, "CodeIssuedAudit")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: verification code issued", "msg_body", string(body))

	var payload event.VerificationCodeIssuedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of verification code issued", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeCodeIssued(ctx, usecase.ConsumeCodeIssuedInput{
		ID:         payload.ID,
		Email:      payload.Email,
		ExpiresAt:  payload.ExpiresAt,
		ResendAt:   payload.ResendAt,
		OccurredAt: payload.OccurredAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume verification code issued", "msg_body", string(body), "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) VerificationCompletedAudit(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("audit.inbound.mq").Start(ctx, "VerificationCompletedAudit")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: verification completed", "msg_body", string(body))

	var payload event.VerificationCompletedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of verification completed", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeVerificationCompleted(ctx, usecase.ConsumeVerificationCompletedInput{
		ID:           payload.ID,
		Email:        payload.Email,
		VerifiedAt:   payload.VerifiedAt,
		AttemptsUsed: payload.AttemptsUsed,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume verification completed", "msg_body", string(body), "error", err)
		return err
	}

	return nil
}
