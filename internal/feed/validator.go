package feed

import (
	"errors"
	"log"

	"abc-inventory-monitor/internal/model"
)

var (
	// ErrEmptySnapshot indicates the download produced zero rows.
	ErrEmptySnapshot = errors.New("snapshot is empty")

	// ErrSnapshotRejected indicates the row count dropped implausibly
	// from the last valid snapshot, which usually means a partial or
	// corrupted download.
	ErrSnapshotRejected = errors.New("snapshot rejected as implausible")
)

// Validator guards against partial downloads flooding clients with false
// out-of-stock transitions. A snapshot whose row count drops by MaxDrop or
// more from the last valid snapshot is rejected, unless the same count has
// been observed on more than StableDownloads consecutive downloads (a real
// inventory shrink eventually wins).
//
// Validate is deterministic given the same prior state. It is not safe for
// concurrent use; the monitor calls it from a single goroutine.
type Validator struct {
	maxDrop         int
	stableOverride  int
	lastValidCount  int
	lastSeenCount   int
	stableDownloads int
}

// NewValidator creates a validator with the given thresholds.
func NewValidator(maxDrop, stableOverride int) *Validator {
	return &Validator{
		maxDrop:        maxDrop,
		stableOverride: stableOverride,
	}
}

// Validate accepts or rejects a candidate snapshot. On acceptance the
// candidate's row count becomes the new last valid count and the stable
// counter resets.
func (v *Validator) Validate(candidate *model.Snapshot) error {
	count := candidate.Len()

	// The stable counter tracks consecutive downloads with an unchanged
	// row count, whether or not they were accepted.
	if count == v.lastSeenCount {
		v.stableDownloads++
	} else {
		v.stableDownloads = 0
	}
	v.lastSeenCount = count

	if count == 0 {
		return ErrEmptySnapshot
	}

	delta := v.lastValidCount - count
	if v.stableDownloads <= v.stableOverride && delta >= v.maxDrop {
		log.Printf("[Validator] Rejecting snapshot: count dropped %d -> %d (stable downloads %d)",
			v.lastValidCount, count, v.stableDownloads)
		return ErrSnapshotRejected
	}

	v.lastValidCount = count
	v.stableDownloads = 0
	return nil
}

// LastValidCount returns the row count of the last accepted snapshot.
func (v *Validator) LastValidCount() int {
	return v.lastValidCount
}

// Reset clears all validator state.
func (v *Validator) Reset() {
	v.lastValidCount = 0
	v.lastSeenCount = 0
	v.stableDownloads = 0
}
