package controllers

import (
	"time"

	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
)

type catalogItemView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Brand           string  `json:"brand"`
	Kind            string  `json:"kind"`
	CapacityPerUnit *string `json:"capacity_per_unit,omitempty"`
	CapacityUnit    *string `json:"capacity_unit,omitempty"`
	IsActive        bool    `json:"is_active"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func newCatalogItemView(item models.CatalogItem) catalogItemView {
	view := catalogItemView{
		ID:        item.ID.String(),
		Name:      item.Name,
		Brand:     item.Brand,
		Kind:      string(item.Kind),
		IsActive:  item.IsActive,
		CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: item.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if item.CapacityPerUnit != nil {
		capacity := item.CapacityPerUnit.String()
		view.CapacityPerUnit = &capacity
	}
	if item.CapacityUnit != nil {
		unit := string(*item.CapacityUnit)
		view.CapacityUnit = &unit
	}
	return view
}

func newCatalogItemViews(items []models.CatalogItem) []catalogItemView {
	views := make([]catalogItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newCatalogItemView(item))
	}
	return views
}

type holdingView struct {
	TechnicianID      string  `json:"technician_id"`
	ItemID            string  `json:"item_id"`
	WholeUnits        int     `json:"whole_units"`
	IsOpened          bool    `json:"is_opened"`
	RemainingCapacity *string `json:"remaining_capacity,omitempty"`
	Version           int64   `json:"version"`
	UpdatedAt         string  `json:"updated_at"`
}

func newHoldingView(holding models.StockHolding) holdingView {
	view := holdingView{
		TechnicianID: holding.TechnicianID.String(),
		ItemID:       holding.ItemID.String(),
		WholeUnits:   holding.WholeUnits,
		IsOpened:     holding.IsOpened,
		Version:      holding.Version,
		UpdatedAt:    holding.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if holding.RemainingCapacity != nil {
		remaining := holding.RemainingCapacity.String()
		view.RemainingCapacity = &remaining
	}
	return view
}

type stockEventView struct {
	ID            string  `json:"id"`
	TechnicianID  string  `json:"technician_id"`
	ItemID        string  `json:"item_id"`
	UsageRecordID *string `json:"usage_record_id,omitempty"`
	Type          string  `json:"type"`
	Amount        string  `json:"amount"`
	Breakdown     any     `json:"breakdown,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func newStockEventView(event models.StockEvent) stockEventView {
	view := stockEventView{
		ID:           event.ID.String(),
		TechnicianID: event.TechnicianID.String(),
		ItemID:       event.ItemID.String(),
		Type:         string(event.Type),
		Amount:       event.Amount.String(),
		CreatedAt:    event.CreatedAt.UTC().Format(time.RFC3339),
	}
	if event.UsageRecordID != nil {
		id := event.UsageRecordID.String()
		view.UsageRecordID = &id
	}
	if len(event.Breakdown) > 0 {
		if breakdown, err := event.GetBreakdown(); err == nil {
			view.Breakdown = breakdown
		}
	}
	return view
}

func newStockEventViews(events []models.StockEvent) []stockEventView {
	views := make([]stockEventView, 0, len(events))
	for _, event := range events {
		views = append(views, newStockEventView(event))
	}
	return views
}

type usageRecordView struct {
	ID              string `json:"id"`
	ServiceID       string `json:"service_id"`
	ItemID          string `json:"item_id"`
	TechnicianID    string `json:"technician_id"`
	RequestedAmount string `json:"requested_amount"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func newUsageRecordView(record models.UsageRecord) usageRecordView {
	return usageRecordView{
		ID:              record.ID.String(),
		ServiceID:       record.ServiceID.String(),
		ItemID:          record.ItemID.String(),
		TechnicianID:    record.TechnicianID.String(),
		RequestedAmount: record.RequestedAmount.String(),
		Status:          string(record.Status),
		CreatedAt:       record.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       record.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func newUsageRecordViews(records []models.UsageRecord) []usageRecordView {
	views := make([]usageRecordView, 0, len(records))
	for _, record := range records {
		views = append(views, newUsageRecordView(record))
	}
	return views
}

type decisionView struct {
	ID            string  `json:"id"`
	UsageRecordID string  `json:"usage_record_id"`
	Outcome       string  `json:"outcome"`
	DecidedBy     *string `json:"decided_by,omitempty"`
	DecidedAt     *string `json:"decided_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func newDecisionView(decision models.ApprovalDecision) decisionView {
	view := decisionView{
		ID:            decision.ID.String(),
		UsageRecordID: decision.UsageRecordID.String(),
		Outcome:       string(decision.Outcome),
		CreatedAt:     decision.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     decision.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if decision.DecidedBy != nil {
		by := decision.DecidedBy.String()
		view.DecidedBy = &by
	}
	if decision.DecidedAt != nil {
		at := decision.DecidedAt.UTC().Format(time.RFC3339)
		view.DecidedAt = &at
	}
	return view
}
