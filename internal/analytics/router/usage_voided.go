package router

import (
	"context"
	"fmt"

	"github.com/fieldstock/fieldstock-backend/internal/analytics/types"
	analyticswriter "github.com/fieldstock/fieldstock-backend/internal/analytics/writer"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	outboxpayloads "github.com/fieldstock/fieldstock-backend/pkg/outbox/payloads"
)

type usageVoidedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newUsageVoidedHandler(writer Writer, logg *logger.Logger) Handler {
	return &usageVoidedHandler{writer: writer, logg: logg}
}

func (h *usageVoidedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*outboxpayloads.UsageVoidedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for usage_voided")
	}

	fields := map[string]any{
		"event_type":      envelope.EventType,
		"usage_record_id": event.UsageRecordID,
		"service_id":      event.ServiceID,
		"technician_id":   event.TechnicianID,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	payloadJSON, err := analyticswriter.EncodeJSON(envelope.Payload)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode payload json", err)
		return err
	}

	row := types.UsageFactRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		OccurredAt:    envelope.OccurredAt,
		UsageRecordID: strPtr(event.UsageRecordID.String()),
		ServiceID:     strPtr(event.ServiceID.String()),
		ItemID:        strPtr(event.ItemID.String()),
		TechnicianID:  strPtr(event.TechnicianID.String()),
		Amount:        strPtr(event.Amount.String()),
		Payload:       payloadJSON,
	}

	if err := h.writer.InsertUsageFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert usage fact row", err)
		return err
	}

	h.logg.Info(logCtx, "usage_voided handler inserted usage fact row")
	return nil
}
