package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abc-inventory-monitor/internal/model"
)

func snapshotWithRows(n int) *model.Snapshot {
	rows := make([]model.InventoryRow, n)
	for i := range rows {
		rows[i] = model.InventoryRow{Code: string(rune('A' + i%26)), TotalAvailable: 1}
	}
	return model.NewSnapshot(rows, time.Now())
}

func TestValidator_AcceptsFirstSnapshot(t *testing.T) {
	v := NewValidator(2, 10)

	err := v.Validate(snapshotWithRows(100))
	require.NoError(t, err)
	assert.Equal(t, 100, v.LastValidCount())
}

func TestValidator_RejectsEmptySnapshot(t *testing.T) {
	v := NewValidator(2, 10)

	err := v.Validate(snapshotWithRows(0))
	assert.ErrorIs(t, err, ErrEmptySnapshot)
}

func TestValidator_RejectsImplausibleDrop(t *testing.T) {
	v := NewValidator(2, 10)
	require.NoError(t, v.Validate(snapshotWithRows(100)))

	// A drop of 2 or more rows looks like a truncated download.
	err := v.Validate(snapshotWithRows(98))
	assert.ErrorIs(t, err, ErrSnapshotRejected)
	assert.Equal(t, 100, v.LastValidCount(), "rejected snapshot must not become the baseline")
}

func TestValidator_AcceptsSmallDrop(t *testing.T) {
	v := NewValidator(2, 10)
	require.NoError(t, v.Validate(snapshotWithRows(100)))

	err := v.Validate(snapshotWithRows(99))
	require.NoError(t, err)
	assert.Equal(t, 99, v.LastValidCount())
}

func TestValidator_StableCountOverridesDrop(t *testing.T) {
	v := NewValidator(2, 10)
	require.NoError(t, v.Validate(snapshotWithRows(100)))

	// The same shrunken count repeated long enough is a real shrink, not a
	// partial download.
	for i := 0; i < 11; i++ {
		err := v.Validate(snapshotWithRows(50))
		assert.ErrorIs(t, err, ErrSnapshotRejected, "download %d", i)
	}
	err := v.Validate(snapshotWithRows(50))
	require.NoError(t, err)
	assert.Equal(t, 50, v.LastValidCount())
}

func TestValidator_ChangedCountResetsStableCounter(t *testing.T) {
	v := NewValidator(2, 10)
	require.NoError(t, v.Validate(snapshotWithRows(100)))

	for i := 0; i < 5; i++ {
		assert.Error(t, v.Validate(snapshotWithRows(50)))
	}
	// A different count restarts the stability clock.
	assert.Error(t, v.Validate(snapshotWithRows(51)))
	for i := 0; i < 10; i++ {
		assert.Error(t, v.Validate(snapshotWithRows(51)))
	}
	require.NoError(t, v.Validate(snapshotWithRows(51)))
}

func TestValidator_IsDeterministic(t *testing.T) {
	run := func() []error {
		v := NewValidator(2, 10)
		var errs []error
		for _, n := range []int{100, 98, 98, 100, 0, 100} {
			errs = append(errs, v.Validate(snapshotWithRows(n)))
		}
		return errs
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i], "download %d", i)
	}
}

func TestValidator_Reset(t *testing.T) {
	v := NewValidator(2, 10)
	require.NoError(t, v.Validate(snapshotWithRows(100)))

	v.Reset()
	assert.Equal(t, 0, v.LastValidCount())

	// After reset a much smaller snapshot is accepted like a first one.
	require.NoError(t, v.Validate(snapshotWithRows(10)))
}
