package alert

import (
	"context"
	"errors"
	"log"
	"time"

	"abc-inventory-monitor/internal/model"
	"abc-inventory-monitor/internal/repository"
)

// Evaluator computes per-client alert candidates from the current and
// previous snapshots. It reads persisted state and proposes alerts; the
// only client mutation it performs is the updates-sent accounting, which
// is committed even when delivery is later withheld (at-least-once
// notification accounting, not exactly-once).
type Evaluator struct {
	clients repository.ClientStore
	items   repository.ItemStore
	tracker *Tracker
}

// NewEvaluator creates an evaluator over the given stores.
func NewEvaluator(clients repository.ClientStore, items repository.ItemStore, tracker *Tracker) *Evaluator {
	return &Evaluator{
		clients: clients,
		items:   items,
		tracker: tracker,
	}
}

// Evaluate returns restock alert candidates for one client. Only
// associations with the tracking flag on are considered. An item missing
// from the previous snapshot counts as previously unavailable, so a
// first-ever sighting in stock is alert-eligible.
func (e *Evaluator) Evaluate(ctx context.Context, client *model.Client, current, previous *model.Snapshot, now time.Time) []model.AlertCandidate {
	var candidates []model.AlertCandidate

	for _, assoc := range client.Tracked {
		if !assoc.Tracking {
			continue
		}

		row, listed := current.Lookup(assoc.Code)
		if !listed {
			// Unlisted means presumed unavailable.
			if err := e.items.SetAvailability(ctx, assoc.Code, 0); err != nil && !errors.Is(err, repository.ErrNotFound) {
				log.Printf("[Evaluator] Failed to zero availability for %s: %v", assoc.Code, err)
			}
			continue
		}

		if _, err := e.tracker.RecordAvailability(ctx, row, now); err != nil {
			log.Printf("[Evaluator] Failed to record availability for %s: %v", assoc.Code, err)
			continue
		}

		if row.TotalAvailable == 0 {
			continue
		}

		previousAvailable := 0
		if prevRow, ok := previous.Lookup(assoc.Code); ok {
			previousAvailable = prevRow.TotalAvailable
		}

		if previousAvailable != 0 {
			// Already visible last cycle, don't repeat the alert.
			continue
		}

		delta := row.TotalAvailable - previousAvailable
		if delta < client.ThresholdInventory {
			continue
		}

		if e.tracker.WithinCooldown(ctx, assoc.Code, client.MinHoursSinceOutOfStock, now) {
			continue
		}

		candidates = append(candidates, model.AlertCandidate{
			Code:      row.Code,
			BrandName: row.BrandName,
			Quantity:  row.TotalAvailable,
		})
	}

	if len(candidates) > 0 {
		if err := e.clients.IncrementUpdatesSent(ctx, client.ID, len(candidates)); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Printf("[Evaluator] Failed to record updates sent for %s: %v", client.ID, err)
		}
		client.UpdatesSent += len(candidates)
	}

	return candidates
}

// EvaluateNewItems returns alert candidates for codes first seen this
// cycle. This path is opt-in per client, skips codes the client already
// has an association for, and bypasses the threshold and cool-down rules
// entirely; it is a different alert class from restocks.
func (e *Evaluator) EvaluateNewItems(client *model.Client, current *model.Snapshot, newCodes []string) []model.AlertCandidate {
	if !client.UpdateOnNewData {
		return nil
	}

	var candidates []model.AlertCandidate
	for _, code := range newCodes {
		if client.IsAssociated(code) {
			continue
		}
		row, ok := current.Lookup(code)
		if !ok {
			continue
		}
		candidates = append(candidates, model.AlertCandidate{
			Code:      row.Code,
			BrandName: row.BrandName,
			Quantity:  row.TotalAvailable,
		})
	}
	return candidates
}
