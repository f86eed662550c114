package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldstock/fieldstock-backend/api/middleware"
	"github.com/fieldstock/fieldstock-backend/api/responses"
	"github.com/fieldstock/fieldstock-backend/api/validators"
	"github.com/fieldstock/fieldstock-backend/internal/approval"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

type decisionPayload struct {
	Outcome string `json:"outcome" validate:"required,oneof=approved rejected"`
}

// ApprovalDecide records the reviewer verdict for a usage record. Approval
// deducts stock exactly once; rejection voids the record without touching it.
func ApprovalDecide(svc approval.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}

		usageRecordID, err := uuid.Parse(chi.URLParam(r, "usageRecordID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid usage record id"))
			return
		}

		var payload decisionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := enums.ParseApprovalOutcome(payload.Outcome)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid outcome"))
			return
		}

		reviewerID, err := uuid.Parse(middleware.ActorIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor id"))
			return
		}

		decision, err := svc.DecideApproval(ctx, usageRecordID, outcome, reviewerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, newDecisionView(decision))
	}
}

// ApprovalGet returns the decision state for a usage record.
func ApprovalGet(svc approval.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}

		usageRecordID, err := uuid.Parse(chi.URLParam(r, "usageRecordID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid usage record id"))
			return
		}

		decision, err := svc.GetDecision(ctx, usageRecordID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, newDecisionView(decision))
	}
}
