// Package alert contains the reconciliation core: per-item out-of-stock
// tracking, per-client alert evaluation, and batched dispatch.
package alert

import (
	"context"
	"errors"
	"log"
	"time"

	"abc-inventory-monitor/internal/model"
	"abc-inventory-monitor/internal/repository"
)

// Tracker maintains the persisted out-of-stock window per item. An item's
// OutOfStockSince timestamp is set on the transition to zero availability
// and cleared when availability becomes positive again; restock alerts are
// suppressed until the configured cool-down has elapsed.
//
// RecordAvailability and the evaluator's reads are not safe to run
// concurrently for the same item code; the monitor serializes cycles.
type Tracker struct {
	items repository.ItemStore

	// Outage start of the most recent restock per code. Clearing the
	// persisted stamp happens before the per-client cool-down checks run,
	// so the window that just ended has to survive here.
	restocked map[string]time.Time
}

// NewTracker creates a tracker over the given item store.
func NewTracker(items repository.ItemStore) *Tracker {
	return &Tracker{
		items:     items,
		restocked: map[string]time.Time{},
	}
}

// RecordAvailability upserts the item's feed metadata and maintains its
// out-of-stock timestamp. Reports whether the code was absent from the
// store before this call, which distinguishes new-item alerts from
// restock alerts.
func (t *Tracker) RecordAvailability(ctx context.Context, row model.InventoryRow, now time.Time) (bool, error) {
	item, isNew, err := t.items.UpsertItem(ctx, row)
	if err != nil {
		return false, err
	}

	if row.TotalAvailable == 0 {
		if item.OutOfStockSince == nil {
			delete(t.restocked, row.Code)
			if err := t.items.SetOutOfStockSince(ctx, row.Code, &now); err != nil {
				return isNew, err
			}
			log.Printf("[Tracker] Item [%s] went out of stock", row.Code)
		}
		return isNew, nil
	}

	if item.OutOfStockSince != nil {
		t.restocked[row.Code] = *item.OutOfStockSince
		if err := t.items.SetOutOfStockSince(ctx, row.Code, nil); err != nil {
			return isNew, err
		}
	}
	return isNew, nil
}

// WithinCooldown reports whether a restock alert for the code should be
// suppressed because the item has not been out of stock long enough. The
// persisted stamp is already cleared by the time restocks are evaluated,
// so the check falls back to the window RecordAvailability just ended.
// A zero cooldown never suppresses, and an item with no recorded
// out-of-stock transition never suppresses.
func (t *Tracker) WithinCooldown(ctx context.Context, code string, cooldownHours int, now time.Time) bool {
	if cooldownHours == 0 {
		return false
	}

	item, err := t.items.GetItem(ctx, code)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("[Tracker] Failed to load item %s for cooldown check: %v", code, err)
		}
		return false
	}

	since := item.OutOfStockSince
	if since == nil {
		ended, ok := t.restocked[code]
		if !ok {
			return false
		}
		since = &ended
	}

	elapsed := now.Sub(*since)
	return elapsed.Hours() <= float64(cooldownHours)
}
