package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldstock/fieldstock-backend/api/middleware"
	"github.com/fieldstock/fieldstock-backend/api/responses"
	"github.com/fieldstock/fieldstock-backend/api/validators"
	"github.com/fieldstock/fieldstock-backend/internal/stock"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

type restockPayload struct {
	TechnicianID string `json:"technician_id" validate:"required,uuid"`
	Units        int    `json:"units" validate:"required,min=1"`
}

// HoldingGet returns the holding for one item. Technicians see their own
// holding; admins and reviewers may pass ?technician_id= to inspect another.
func HoldingGet(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		technicianID, err := resolveTechnician(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		holding, err := svc.GetHolding(ctx, technicianID, itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, newHoldingView(holding))
	}
}

// HoldingRestock records a provisioning delivery of sealed units.
func HoldingRestock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		var payload restockPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		technicianID, err := uuid.Parse(payload.TechnicianID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid technician id"))
			return
		}

		actorID, err := uuid.Parse(middleware.ActorIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor id"))
			return
		}

		holding, err := svc.AddStock(ctx, stock.AddStockInput{
			TechnicianID: technicianID,
			ItemID:       itemID,
			Units:        payload.Units,
			ActorID:      actorID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newHoldingView(holding))
	}
}

// HoldingEvents returns the movement trail for one holding, newest first.
func HoldingEvents(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		technicianID, err := resolveTechnician(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		events, err := svc.ListEvents(ctx, technicianID, itemID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"events": newStockEventViews(events)})
	}
}

func resolveTechnician(r *http.Request) (uuid.UUID, error) {
	ctx := r.Context()
	role := middleware.RoleFromContext(ctx)

	if requested := strings.TrimSpace(r.URL.Query().Get("technician_id")); requested != "" {
		if role != string(enums.RoleAdmin) && role != string(enums.RoleReviewer) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot inspect another technician's stock")
		}
		id, err := uuid.Parse(requested)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid technician id")
		}
		return id, nil
	}

	id, err := uuid.Parse(middleware.ActorIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor id")
	}
	return id, nil
}
