package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/pkg/messaging"
	"github.com/shandysiswandi/goverify/internal/pkg/uid"
	"github.com/shandysiswandi/goverify/internal/shared/event"
	"github.com/shandysiswandi/goverify/internal/verification/usecase"
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

func (h *MQHandler) VerificationRequestEngine(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("verification.inbound.mq").Start(ctx, "VerificationRequestEngine")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: verification request", "msg_body", string(body))

	var payload event.VerificationRequestMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of verification request", "msg_body", string(body), "error", err)
		return nil
	}

	messageID := msg.ID()
	if messageID == "" {
		// Brokers without message ids get no dedup; a fresh id still keys the lock.
		messageID = h.uuid.Generate()
	}

	if err := h.uc.ConsumeVerificationRequest(ctx, usecase.ConsumeVerificationRequestInput{
		MessageID: messageID,
		Email:     payload.Email,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume verification request", "msg_body", string(body), "error", err)
		return err
	}

	return nil
}
