package router

import (
	"context"
	"fmt"

	"github.com/fieldstock/fieldstock-backend/internal/analytics/types"
	analyticswriter "github.com/fieldstock/fieldstock-backend/internal/analytics/writer"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	outboxpayloads "github.com/fieldstock/fieldstock-backend/pkg/outbox/payloads"
)

type stockRestockedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newStockRestockedHandler(writer Writer, logg *logger.Logger) Handler {
	return &stockRestockedHandler{writer: writer, logg: logg}
}

func (h *stockRestockedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*outboxpayloads.StockRestockedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for stock_restocked")
	}

	fields := map[string]any{
		"event_type":    envelope.EventType,
		"item_id":       event.ItemID,
		"technician_id": event.TechnicianID,
		"units":         event.Units,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	payloadJSON, err := analyticswriter.EncodeJSON(envelope.Payload)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode payload json", err)
		return err
	}

	units := int64(event.Units)
	row := types.UsageFactRow{
		EventID:      envelope.EventID,
		EventType:    string(envelope.EventType),
		OccurredAt:   envelope.OccurredAt,
		ItemID:       strPtr(event.ItemID.String()),
		TechnicianID: strPtr(event.TechnicianID.String()),
		Units:        &units,
		Payload:      payloadJSON,
	}

	if err := h.writer.InsertUsageFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert usage fact row", err)
		return err
	}

	h.logg.Info(logCtx, "stock_restocked handler inserted usage fact row")
	return nil
}
