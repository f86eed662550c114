package router

import (
	"context"
	"fmt"

	"github.com/fieldstock/fieldstock-backend/internal/analytics/types"
	analyticswriter "github.com/fieldstock/fieldstock-backend/internal/analytics/writer"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	outboxpayloads "github.com/fieldstock/fieldstock-backend/pkg/outbox/payloads"
)

type usageAppliedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newUsageAppliedHandler(writer Writer, logg *logger.Logger) Handler {
	return &usageAppliedHandler{writer: writer, logg: logg}
}

func (h *usageAppliedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*outboxpayloads.UsageAppliedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for usage_applied")
	}

	fields := map[string]any{
		"event_type":      envelope.EventType,
		"usage_record_id": event.UsageRecordID,
		"service_id":      event.ServiceID,
		"technician_id":   event.TechnicianID,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := buildUsageAppliedRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build usage fact row", err)
		return err
	}

	if err := h.writer.InsertUsageFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert usage fact row", err)
		return err
	}

	h.logg.Info(logCtx, "usage_applied handler inserted usage fact row")
	return nil
}

func buildUsageAppliedRow(envelope types.Envelope, event *outboxpayloads.UsageAppliedEvent) (types.UsageFactRow, error) {
	breakdownJSON, err := analyticswriter.EncodeJSON(event.Breakdown)
	if err != nil {
		return types.UsageFactRow{}, fmt.Errorf("encode breakdown json: %w", err)
	}
	payloadJSON, err := analyticswriter.EncodeJSON(envelope.Payload)
	if err != nil {
		return types.UsageFactRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	return types.UsageFactRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		OccurredAt:    envelope.OccurredAt,
		UsageRecordID: strPtr(event.UsageRecordID.String()),
		ServiceID:     strPtr(event.ServiceID.String()),
		ItemID:        strPtr(event.ItemID.String()),
		TechnicianID:  strPtr(event.TechnicianID.String()),
		Amount:        strPtr(event.Amount.String()),
		Breakdown:     breakdownJSON,
		Payload:       payloadJSON,
	}, nil
}
