package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abc-inventory-monitor/internal/model"
)

func newSQLiteFixture(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_ClientRoundTrip(t *testing.T) {
	store := newSQLiteFixture(t)
	ctx := context.Background()

	require.NoError(t, store.AddClient(ctx, "alice", "alice@example.com", []string{"+19195551234", "+19195555678"}))

	client, err := store.GetClient(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", client.Email)
	assert.Equal(t, []string{"+19195551234", "+19195555678"}, client.PhoneNumbers)
	assert.True(t, client.EmailAlerts)
	assert.True(t, client.PhoneAlerts)
	assert.Equal(t, 1, client.ThresholdInventory)
	assert.False(t, client.HasPaid)

	// Adding again is a no-op, not an error.
	require.NoError(t, store.AddClient(ctx, "alice", "other@example.com", nil))
	client, err = store.GetClient(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", client.Email)

	client.HasPaid = true
	client.ThresholdInventory = 5
	client.AlertRangeEnabled = true
	client.AlertTimeRangeStart = 540
	client.AlertTimeRangeEnd = 1020
	client.AlertTimeZone = "America/New_York"
	require.NoError(t, store.SaveClient(ctx, client))

	reloaded, err := store.GetClient(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, reloaded.HasPaid)
	assert.Equal(t, 5, reloaded.ThresholdInventory)
	assert.Equal(t, 540, reloaded.AlertTimeRangeStart)
	assert.Equal(t, "America/New_York", reloaded.AlertTimeZone)
}

func TestSQLiteStore_UnknownClient(t *testing.T) {
	store := newSQLiteFixture(t)
	ctx := context.Background()

	_, err := store.GetClient(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.SaveClient(ctx, &model.Client{ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.IncrementUpdatesSent(ctx, "ghost", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Associations(t *testing.T) {
	store := newSQLiteFixture(t)
	ctx := context.Background()
	require.NoError(t, store.AddClient(ctx, "alice", "", nil))

	require.NoError(t, store.AddTrackAssociation(ctx, "alice", "00009", true))
	require.NoError(t, store.AddTrackAssociation(ctx, "alice", "00064", false))

	client, err := store.GetClient(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, client.Tracked, 2)
	assert.True(t, client.Tracked[0].Tracking)
	assert.False(t, client.Tracked[1].Tracking)

	// Flipping the flag updates in place.
	require.NoError(t, store.AddTrackAssociation(ctx, "alice", "00064", true))
	client, err = store.GetClient(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, client.Tracked, 2)
	assert.True(t, client.Tracked[1].Tracking)

	require.NoError(t, store.DeleteTrackAssociation(ctx, "alice", "00009"))
	client, err = store.GetClient(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, client.Tracked, 1)
	assert.Equal(t, "00064", client.Tracked[0].Code)
}

func TestSQLiteStore_ItemLifecycle(t *testing.T) {
	store := newSQLiteFixture(t)
	ctx := context.Background()

	row := model.InventoryRow{
		Code: "00009", BrandName: "Gentleman Jack", TotalAvailable: 180,
		Size: ".75L", CasesPerPallet: 60, Supplier: "Brown-Forman",
	}
	item, isNew, err := store.UpsertItem(ctx, row)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 180, item.TotalAvailable)
	assert.Nil(t, item.OutOfStockSince)

	row.TotalAvailable = 0
	item, isNew, err = store.UpsertItem(ctx, row)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, 0, item.TotalAvailable)

	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetOutOfStockSince(ctx, "00009", &since))
	item, err = store.GetItem(ctx, "00009")
	require.NoError(t, err)
	require.NotNil(t, item.OutOfStockSince)
	assert.True(t, item.OutOfStockSince.Equal(since))

	require.NoError(t, store.SetOutOfStockSince(ctx, "00009", nil))
	item, err = store.GetItem(ctx, "00009")
	require.NoError(t, err)
	assert.Nil(t, item.OutOfStockSince)

	require.NoError(t, store.SetAvailability(ctx, "00009", 7))
	item, err = store.GetItem(ctx, "00009")
	require.NoError(t, err)
	assert.Equal(t, 7, item.TotalAvailable)

	assert.ErrorIs(t, store.SetAvailability(ctx, "99999", 1), ErrNotFound)
}

func TestSQLiteStore_DeleteClientCascades(t *testing.T) {
	store := newSQLiteFixture(t)
	ctx := context.Background()

	require.NoError(t, store.AddClient(ctx, "alice", "", []string{"+19195551234"}))
	require.NoError(t, store.AddTrackAssociation(ctx, "alice", "00009", true))
	require.NoError(t, store.DeleteClient(ctx, "alice"))

	_, err := store.GetClient(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}
