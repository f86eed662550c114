package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/api/middleware"
	"github.com/fieldstock/fieldstock-backend/api/responses"
	"github.com/fieldstock/fieldstock-backend/api/validators"
	"github.com/fieldstock/fieldstock-backend/internal/usage"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/pagination"
)

type recordUsagePayload struct {
	ServiceID string `json:"service_id" validate:"required,uuid"`
	ItemID    string `json:"item_id" validate:"required,uuid"`
	Amount    string `json:"amount" validate:"required"`
}

// UsageCreate files an optimistic usage record for the calling technician.
func UsageCreate(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		var payload recordUsagePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		serviceID, err := uuid.Parse(payload.ServiceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service id"))
			return
		}
		itemID, err := uuid.Parse(payload.ItemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		technicianID, err := uuid.Parse(middleware.ActorIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor id"))
			return
		}

		record, err := svc.RecordUsage(ctx, usage.RecordUsageInput{
			ServiceID:    serviceID,
			ItemID:       itemID,
			TechnicianID: technicianID,
			Amount:       amount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newUsageRecordView(record))
	}
}

// UsageGet returns one usage record by id.
func UsageGet(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid usage record id"))
			return
		}

		record, err := svc.GetUsageRecord(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if !canReadUsage(ctx, record.TechnicianID) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another technician's usage"))
			return
		}

		responses.WriteSuccess(w, newUsageRecordView(record))
	}
}

// UsageList returns the caller's usage records with cursor pagination.
// Admins and reviewers may pass ?technician_id= to list another technician.
func UsageList(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		technicianID, err := resolveTechnician(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		records, nextCursor, err := svc.ListUsageRecordsByTechnician(ctx, technicianID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := map[string]any{"records": newUsageRecordViews(records)}
		if nextCursor != "" {
			payload["next_cursor"] = nextCursor
		}
		responses.WriteSuccess(w, payload)
	}
}

func canReadUsage(ctx context.Context, technicianID uuid.UUID) bool {
	role := middleware.RoleFromContext(ctx)
	if role == string(enums.RoleAdmin) || role == string(enums.RoleReviewer) {
		return true
	}
	return middleware.ActorIDFromContext(ctx) == technicianID.String()
}
