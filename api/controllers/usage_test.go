package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/api/middleware"
	"github.com/fieldstock/fieldstock-backend/internal/usage"
	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/pagination"
)

type testUsageService struct {
	recordFn func(ctx context.Context, input usage.RecordUsageInput) (models.UsageRecord, error)
	getFn    func(ctx context.Context, id uuid.UUID) (models.UsageRecord, error)
	listFn   func(ctx context.Context, technicianID uuid.UUID, params pagination.Params) ([]models.UsageRecord, string, error)
}

func (s *testUsageService) RecordUsage(ctx context.Context, input usage.RecordUsageInput) (models.UsageRecord, error) {
	if s.recordFn != nil {
		return s.recordFn(ctx, input)
	}
	return models.UsageRecord{}, nil
}

func (s *testUsageService) GetUsageRecord(ctx context.Context, id uuid.UUID) (models.UsageRecord, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return models.UsageRecord{}, nil
}

func (s *testUsageService) ListUsageRecordsByTechnician(ctx context.Context, technicianID uuid.UUID, params pagination.Params) ([]models.UsageRecord, string, error) {
	if s.listFn != nil {
		return s.listFn(ctx, technicianID, params)
	}
	return nil, "", nil
}

func (s *testUsageService) ListPendingForService(ctx context.Context, serviceID uuid.UUID) ([]models.UsageRecord, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestUsageCreateSuccess(t *testing.T) {
	technicianID := uuid.New()
	serviceID := uuid.New()
	itemID := uuid.New()

	svc := &testUsageService{
		recordFn: func(ctx context.Context, input usage.RecordUsageInput) (models.UsageRecord, error) {
			if input.TechnicianID != technicianID {
				t.Fatalf("unexpected technician %s", input.TechnicianID)
			}
			if !input.Amount.Equal(decimal.RequireFromString("37.5")) {
				t.Fatalf("unexpected amount %s", input.Amount)
			}
			return models.UsageRecord{
				ID:              uuid.New(),
				ServiceID:       input.ServiceID,
				ItemID:          input.ItemID,
				TechnicianID:    input.TechnicianID,
				RequestedAmount: input.Amount,
				Status:          enums.UsageStatusPending,
			}, nil
		},
	}

	body := `{"service_id":"` + serviceID.String() + `","item_id":"` + itemID.String() + `","amount":"37.5"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/usage", strings.NewReader(body))
	req = req.WithContext(middleware.WithActor(req.Context(), technicianID.String(), string(enums.RoleTechnician)))

	resp := httptest.NewRecorder()
	UsageCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data usageRecordView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != string(enums.UsageStatusPending) {
		t.Fatalf("expected pending status got %s", envelope.Data.Status)
	}
	if envelope.Data.RequestedAmount != "37.5" {
		t.Fatalf("unexpected amount %s", envelope.Data.RequestedAmount)
	}
}

func TestUsageCreateRejectsBadAmount(t *testing.T) {
	svc := &testUsageService{
		recordFn: func(ctx context.Context, input usage.RecordUsageInput) (models.UsageRecord, error) {
			t.Fatal("service should not be called")
			return models.UsageRecord{}, nil
		},
	}

	body := `{"service_id":"` + uuid.NewString() + `","item_id":"` + uuid.NewString() + `","amount":"not-a-number"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/usage", strings.NewReader(body))
	req = req.WithContext(middleware.WithActor(req.Context(), uuid.NewString(), string(enums.RoleTechnician)))

	resp := httptest.NewRecorder()
	UsageCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUsageGetForbiddenForOtherTechnician(t *testing.T) {
	recordID := uuid.New()
	owner := uuid.New()
	svc := &testUsageService{
		getFn: func(ctx context.Context, id uuid.UUID) (models.UsageRecord, error) {
			return models.UsageRecord{
				ID:           id,
				TechnicianID: owner,
				Status:       enums.UsageStatusPending,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage/"+recordID.String(), nil)
	req = req.WithContext(middleware.WithActor(req.Context(), uuid.NewString(), string(enums.RoleTechnician)))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", recordID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	UsageGet(svc, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestUsageListPagination(t *testing.T) {
	technicianID := uuid.New()
	svc := &testUsageService{
		listFn: func(ctx context.Context, tid uuid.UUID, params pagination.Params) ([]models.UsageRecord, string, error) {
			if tid != technicianID {
				t.Fatalf("unexpected technician %s", tid)
			}
			if params.Limit != 10 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return []models.UsageRecord{{
				ID:              uuid.New(),
				ServiceID:       uuid.New(),
				ItemID:          uuid.New(),
				TechnicianID:    tid,
				RequestedAmount: decimal.RequireFromString("2"),
				Status:          enums.UsageStatusApplied,
			}}, "next-token", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage?limit=10", nil)
	req = req.WithContext(middleware.WithActor(req.Context(), technicianID.String(), string(enums.RoleTechnician)))

	resp := httptest.NewRecorder()
	UsageList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			Records    []usageRecordView `json:"records"`
			NextCursor string            `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Records) != 1 {
		t.Fatalf("expected one record got %d", len(envelope.Data.Records))
	}
	if envelope.Data.NextCursor != "next-token" {
		t.Fatalf("expected cursor got %q", envelope.Data.NextCursor)
	}
}

func TestUsageListForbidsTechnicianOverride(t *testing.T) {
	svc := &testUsageService{
		listFn: func(ctx context.Context, tid uuid.UUID, params pagination.Params) ([]models.UsageRecord, string, error) {
			t.Fatal("service should not be called")
			return nil, "", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage?technician_id="+uuid.NewString(), nil)
	req = req.WithContext(middleware.WithActor(req.Context(), uuid.NewString(), string(enums.RoleTechnician)))

	resp := httptest.NewRecorder()
	UsageList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}
