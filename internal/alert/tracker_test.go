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

func TestTracker_RecordAvailabilityStampsOutOfStock(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	isNew, err := tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009", TotalAvailable: 0}, now)
	require.NoError(t, err)
	assert.True(t, isNew)

	item, err := store.GetItem(ctx, "00009")
	require.NoError(t, err)
	require.NotNil(t, item.OutOfStockSince)
	assert.True(t, item.OutOfStockSince.Equal(now))
}

func TestTracker_OutOfStockStampIsNotOverwritten(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(6 * time.Hour)

	_, err := tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009"}, first)
	require.NoError(t, err)
	_, err = tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009"}, later)
	require.NoError(t, err)

	item, err := store.GetItem(ctx, "00009")
	require.NoError(t, err)
	require.NotNil(t, item.OutOfStockSince)
	assert.True(t, item.OutOfStockSince.Equal(first), "the original transition time must survive later cycles")
}

func TestTracker_RestockClearsStamp(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	now := time.Now()

	_, err := tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009"}, now)
	require.NoError(t, err)
	isNew, err := tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009", TotalAvailable: 12}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, isNew)

	item, err := store.GetItem(ctx, "00009")
	require.NoError(t, err)
	assert.Nil(t, item.OutOfStockSince)
	assert.Equal(t, 12, item.TotalAvailable)
}

func TestTracker_WithinCooldown(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	wentOut := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009"}, wentOut)
	require.NoError(t, err)

	assert.True(t, tracker.WithinCooldown(ctx, "00009", 24, wentOut.Add(6*time.Hour)))
	assert.False(t, tracker.WithinCooldown(ctx, "00009", 24, wentOut.Add(25*time.Hour)))
}

func TestTracker_CooldownSeesWindowClearedByRestock(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	wentOut := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009"}, wentOut)
	require.NoError(t, err)

	// Restock six hours later clears the persisted stamp before any
	// client is evaluated; the six-hour window must still suppress.
	backAt := wentOut.Add(6 * time.Hour)
	_, err = tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009", TotalAvailable: 30}, backAt)
	require.NoError(t, err)

	item, err := store.GetItem(ctx, "00009")
	require.NoError(t, err)
	require.Nil(t, item.OutOfStockSince)

	assert.True(t, tracker.WithinCooldown(ctx, "00009", 24, backAt))
	assert.False(t, tracker.WithinCooldown(ctx, "00009", 4, backAt))
}

func TestTracker_NewOutageReplacesEndedWindow(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009"}, first)
	require.NoError(t, err)
	_, err = tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009", TotalAvailable: 30}, first.Add(time.Hour))
	require.NoError(t, err)

	// A second outage a week later starts a fresh window.
	second := first.Add(7 * 24 * time.Hour)
	_, err = tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009"}, second)
	require.NoError(t, err)
	_, err = tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009", TotalAvailable: 30}, second.Add(2*time.Hour))
	require.NoError(t, err)

	assert.True(t, tracker.WithinCooldown(ctx, "00009", 24, second.Add(2*time.Hour)))
}

func TestTracker_ZeroCooldownNeverSuppresses(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	now := time.Now()

	_, err := tracker.RecordAvailability(ctx, model.InventoryRow{Code: "00009"}, now)
	require.NoError(t, err)

	assert.False(t, tracker.WithinCooldown(ctx, "00009", 0, now))
}

func TestTracker_UnknownItemNeverSuppresses(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := NewTracker(store)

	assert.False(t, tracker.WithinCooldown(context.Background(), "99999", 24, time.Now()))
}
