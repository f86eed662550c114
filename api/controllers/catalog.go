package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/api/responses"
	"github.com/fieldstock/fieldstock-backend/api/validators"
	"github.com/fieldstock/fieldstock-backend/internal/catalog"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

type createCatalogItemPayload struct {
	Name            string  `json:"name" validate:"required,min=1,max=200"`
	Brand           string  `json:"brand" validate:"required,min=1,max=200"`
	Kind            string  `json:"kind" validate:"required,oneof=consumable discrete"`
	CapacityPerUnit *string `json:"capacity_per_unit,omitempty"`
	CapacityUnit    *string `json:"capacity_unit,omitempty"`
}

type updateCatalogItemPayload struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Brand    *string `json:"brand,omitempty" validate:"omitempty,min=1,max=200"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// CatalogCreate registers a new catalog item.
func CatalogCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createCatalogItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		kind, err := enums.ParseItemKind(payload.Kind)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item kind"))
			return
		}

		input := catalog.CreateItemInput{
			Name:  validators.SanitizeString(payload.Name, 200),
			Brand: validators.SanitizeString(payload.Brand, 200),
			Kind:  kind,
		}

		if payload.CapacityPerUnit != nil {
			capacity, err := decimal.NewFromString(strings.TrimSpace(*payload.CapacityPerUnit))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capacity_per_unit"))
				return
			}
			input.CapacityPerUnit = &capacity
		}
		if payload.CapacityUnit != nil {
			unit, err := enums.ParseCapacityUnit(*payload.CapacityUnit)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capacity_unit"))
				return
			}
			input.CapacityUnit = &unit
		}

		item, err := svc.CreateItem(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCatalogItemView(item))
	}
}

// CatalogGet returns a single catalog item by id.
func CatalogGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		item, err := svc.GetItem(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCatalogItemView(item))
	}
}

// CatalogList returns catalog items, optionally active-only.
func CatalogList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filter := catalog.ListFilter{
			ActiveOnly: strings.EqualFold(r.URL.Query().Get("active"), "true"),
			Limit:      limit,
			Offset:     offset,
		}

		items, err := svc.ListItems(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": newCatalogItemViews(items)})
	}
}

// CatalogUpdate patches mutable catalog fields.
func CatalogUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		var payload updateCatalogItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := catalog.UpdateItemInput{IsActive: payload.IsActive}
		if payload.Name != nil {
			name := validators.SanitizeString(*payload.Name, 200)
			input.Name = &name
		}
		if payload.Brand != nil {
			brand := validators.SanitizeString(*payload.Brand, 200)
			input.Brand = &brand
		}

		item, err := svc.UpdateItem(ctx, id, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCatalogItemView(item))
	}
}
