package stock

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// AllocationResult is the computed post-deduction state of a holding along
// with the breakdown of where the amount was drawn from.
type AllocationResult struct {
	Holding   models.StockHolding
	Breakdown models.DrawBreakdown
}

// Allocate computes how requestedAmount is drawn from the holding. It is a
// pure function over a snapshot: the input holding is never mutated, and a
// failed allocation returns the zero result. Callers apply the returned
// holding (or not) under their own transaction.
//
// Consumables drain the opened container first, then sealed units; a sealed
// unit is opened only when a fraction of it is needed. Discrete items
// decrement whole units directly.
func Allocate(holding models.StockHolding, item models.CatalogItem, requestedAmount decimal.Decimal) (AllocationResult, error) {
	if !requestedAmount.IsPositive() {
		return AllocationResult{}, pkgerrors.New(pkgerrors.CodeValidation, "requested amount must be positive")
	}
	if holding.ItemID != item.ID {
		return AllocationResult{}, pkgerrors.New(pkgerrors.CodeInvariantViolation, "holding does not belong to catalog item")
	}

	if item.Kind == enums.ItemKindDiscrete {
		return allocateDiscrete(holding, requestedAmount)
	}
	return allocateConsumable(holding, item, requestedAmount)
}

func allocateDiscrete(holding models.StockHolding, requestedAmount decimal.Decimal) (AllocationResult, error) {
	if holding.IsOpened {
		return AllocationResult{}, pkgerrors.New(pkgerrors.CodeInvariantViolation, "discrete holding has an opened container")
	}
	if !requestedAmount.IsInteger() {
		return AllocationResult{}, pkgerrors.New(pkgerrors.CodeValidation, "discrete items require a whole unit count")
	}

	units := int(requestedAmount.IntPart())
	if holding.WholeUnits < units {
		return AllocationResult{}, insufficient(requestedAmount, decimal.NewFromInt(int64(holding.WholeUnits)))
	}

	next := holding
	next.WholeUnits -= units
	return AllocationResult{
		Holding: next,
		Breakdown: models.DrawBreakdown{
			FromOpened:     decimal.Zero,
			WholeUnitsUsed: units,
			RemainingAfter: decimal.Zero,
		},
	}, nil
}

func allocateConsumable(holding models.StockHolding, item models.CatalogItem, requestedAmount decimal.Decimal) (AllocationResult, error) {
	capacity := item.Capacity()
	if !capacity.IsPositive() {
		return AllocationResult{}, pkgerrors.New(pkgerrors.CodeInvariantViolation,
			fmt.Sprintf("consumable item %s has no per-unit capacity", item.ID))
	}

	next := holding
	need := requestedAmount
	breakdown := models.DrawBreakdown{FromOpened: decimal.Zero}

	// Drain the opened container first.
	if next.IsOpened {
		remaining := next.Remaining()
		drawn := decimal.Min(need, remaining)
		need = need.Sub(drawn)
		remaining = remaining.Sub(drawn)
		breakdown.FromOpened = drawn

		if remaining.IsZero() {
			// An exhausted container is consumed; it does not return to
			// the sealed count.
			next.IsOpened = false
			next.RemainingCapacity = nil
			breakdown.ExhaustedOpenUnit = true
		} else {
			next.RemainingCapacity = &remaining
		}
	}

	for need.IsPositive() {
		if next.WholeUnits < 1 {
			return AllocationResult{}, insufficient(requestedAmount, available(holding, capacity))
		}
		if need.GreaterThanOrEqual(capacity) {
			// A full sealed unit is consumed without ever being "opened".
			next.WholeUnits--
			need = need.Sub(capacity)
			breakdown.WholeUnitsUsed++
			continue
		}
		// Fractional tail: open one sealed unit.
		next.WholeUnits--
		remaining := capacity.Sub(need)
		next.IsOpened = true
		next.RemainingCapacity = &remaining
		breakdown.OpenedNewUnit = true
		need = decimal.Zero
	}

	breakdown.RemainingAfter = next.Remaining()

	if err := ValidateHolding(next, item); err != nil {
		return AllocationResult{}, err
	}
	return AllocationResult{Holding: next, Breakdown: breakdown}, nil
}

// ValidateHolding checks the structural invariants every holding must satisfy
// after any mutation. A failure here is a bug in the caller, not bad input.
func ValidateHolding(holding models.StockHolding, item models.CatalogItem) error {
	if holding.WholeUnits < 0 {
		return pkgerrors.New(pkgerrors.CodeInvariantViolation, "negative whole unit count")
	}
	if item.Kind == enums.ItemKindDiscrete && holding.IsOpened {
		return pkgerrors.New(pkgerrors.CodeInvariantViolation, "discrete holding cannot have an opened container")
	}
	if holding.IsOpened {
		remaining := holding.Remaining()
		if !remaining.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeInvariantViolation, "opened container must have remaining capacity")
		}
		if remaining.GreaterThan(item.Capacity()) {
			return pkgerrors.New(pkgerrors.CodeInvariantViolation, "remaining capacity exceeds per-unit capacity")
		}
	} else if holding.RemainingCapacity != nil {
		return pkgerrors.New(pkgerrors.CodeInvariantViolation, "remaining capacity set without an opened container")
	}
	return nil
}

// available totals the capacity a holding can still yield.
func available(holding models.StockHolding, capacity decimal.Decimal) decimal.Decimal {
	total := capacity.Mul(decimal.NewFromInt(int64(holding.WholeUnits)))
	return total.Add(holding.Remaining())
}

func insufficient(requested, avail decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "holding cannot satisfy requested amount").
		WithDetails(map[string]any{
			"requested": requested.String(),
			"available": avail.String(),
		})
}
