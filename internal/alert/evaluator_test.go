package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abc-inventory-monitor/internal/model"
	"abc-inventory-monitor/internal/repository"
)

func newEvaluatorFixture(t *testing.T) (*Evaluator, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewEvaluator(store, store, NewTracker(store)), store
}

func addTrackingClient(t *testing.T, store *repository.MemoryStore, id string, codes ...string) *model.Client {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.AddClient(ctx, id, id+"@example.com", []string{"+19195551234"}))
	for _, code := range codes {
		require.NoError(t, store.AddTrackAssociation(ctx, id, code, true))
	}
	client, err := store.GetClient(ctx, id)
	require.NoError(t, err)
	return client
}

func snap(rows ...model.InventoryRow) *model.Snapshot {
	return model.NewSnapshot(rows, time.Now())
}

func TestEvaluate_RestockProducesCandidate(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	client := addTrackingClient(t, store, "alice", "00009")

	previous := snap(model.InventoryRow{Code: "00009", BrandName: "Gentleman Jack", TotalAvailable: 0})
	current := snap(model.InventoryRow{Code: "00009", BrandName: "Gentleman Jack", TotalAvailable: 180})

	candidates := e.Evaluate(context.Background(), client, current, previous, time.Now())
	require.Len(t, candidates, 1)
	assert.Equal(t, "00009", candidates[0].Code)
	assert.Equal(t, "Gentleman Jack", candidates[0].BrandName)
	assert.Equal(t, 180, candidates[0].Quantity)
}

func TestEvaluate_UntrackedAssociationIsSkipped(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	ctx := context.Background()
	require.NoError(t, store.AddClient(ctx, "alice", "alice@example.com", nil))
	require.NoError(t, store.AddTrackAssociation(ctx, "alice", "00009", false))
	client, err := store.GetClient(ctx, "alice")
	require.NoError(t, err)

	current := snap(model.InventoryRow{Code: "00009", TotalAvailable: 180})
	candidates := e.Evaluate(ctx, client, current, snap(), time.Now())
	assert.Empty(t, candidates)
}

func TestEvaluate_MissingFromFeedZeroesAvailability(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	ctx := context.Background()
	client := addTrackingClient(t, store, "alice", "00009")

	// Seed the item, then serve a feed without it.
	seeded := snap(model.InventoryRow{Code: "00009", TotalAvailable: 50})
	e.Evaluate(ctx, client, seeded, nil, time.Now())

	candidates := e.Evaluate(ctx, client, snap(), seeded, time.Now())
	assert.Empty(t, candidates)

	item, err := store.GetItem(ctx, "00009")
	require.NoError(t, err)
	assert.Equal(t, 0, item.TotalAvailable)
}

func TestEvaluate_StaleAssociationIsTolerated(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	client := addTrackingClient(t, store, "alice", "99999")

	// The code was never in any feed and has no persisted item row.
	candidates := e.Evaluate(context.Background(), client, snap(), nil, time.Now())
	assert.Empty(t, candidates)
}

func TestEvaluate_NoAlertWhilePreviouslyInStock(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	client := addTrackingClient(t, store, "alice", "00009")

	previous := snap(model.InventoryRow{Code: "00009", TotalAvailable: 20})
	current := snap(model.InventoryRow{Code: "00009", TotalAvailable: 80})

	candidates := e.Evaluate(context.Background(), client, current, previous, time.Now())
	assert.Empty(t, candidates, "an increase from a nonzero quantity is not a restock")
}

func TestEvaluate_ThresholdSuppressesSmallRestock(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	ctx := context.Background()
	client := addTrackingClient(t, store, "alice", "00009")
	client.ThresholdInventory = 10
	require.NoError(t, store.SaveClient(ctx, client))

	previous := snap(model.InventoryRow{Code: "00009", TotalAvailable: 0})
	current := snap(model.InventoryRow{Code: "00009", TotalAvailable: 5})

	candidates := e.Evaluate(ctx, client, current, previous, time.Now())
	assert.Empty(t, candidates)
}

func TestEvaluate_CooldownSuppressesRecentOutOfStock(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	ctx := context.Background()
	client := addTrackingClient(t, store, "alice", "00009")
	client.MinHoursSinceOutOfStock = 24
	require.NoError(t, store.SaveClient(ctx, client))

	wentOut := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	outSnap := snap(model.InventoryRow{Code: "00009", TotalAvailable: 0})
	e.Evaluate(ctx, client, outSnap, nil, wentOut)

	backSnap := snap(model.InventoryRow{Code: "00009", TotalAvailable: 30})

	// Back in stock six hours later: suppressed.
	candidates := e.Evaluate(ctx, client, backSnap, outSnap, wentOut.Add(6*time.Hour))
	assert.Empty(t, candidates)
}

func TestEvaluate_FirstSightingIsEligible(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	client := addTrackingClient(t, store, "alice", "00009")

	// No previous snapshot at all: previous quantity counts as zero.
	current := snap(model.InventoryRow{Code: "00009", BrandName: "Gentleman Jack", TotalAvailable: 180})
	candidates := e.Evaluate(context.Background(), client, current, nil, time.Now())
	require.Len(t, candidates, 1)
}

func TestEvaluate_AccountingHappensEvenBeforeDelivery(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	ctx := context.Background()
	client := addTrackingClient(t, store, "alice", "00009")

	current := snap(model.InventoryRow{Code: "00009", TotalAvailable: 180})
	candidates := e.Evaluate(ctx, client, current, nil, time.Now())
	require.Len(t, candidates, 1)
	assert.Equal(t, 1, client.UpdatesSent)

	stored, err := store.GetClient(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UpdatesSent)
}

func TestEvaluateNewItems(t *testing.T) {
	e, store := newEvaluatorFixture(t)
	client := addTrackingClient(t, store, "alice", "00009")

	current := snap(
		model.InventoryRow{Code: "00009", TotalAvailable: 10},
		model.InventoryRow{Code: "00500", BrandName: "New Release", TotalAvailable: 40},
	)

	// Codes the client already has an association for are skipped.
	candidates := e.EvaluateNewItems(client, current, []string{"00009", "00500"})
	require.Len(t, candidates, 1)
	assert.Equal(t, "00500", candidates[0].Code)

	client.UpdateOnNewData = false
	assert.Empty(t, e.EvaluateNewItems(client, current, []string{"00500"}))
}
