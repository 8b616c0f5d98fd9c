package feed

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"abc-inventory-monitor/internal/model"
)

// DiffEntry is one appended record in the diagnostic diff artifact.
type DiffEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Added     []string          `json:"added,omitempty"`
	Removed   []string          `json:"removed,omitempty"`
	Changed   map[string][2]int `json:"changed,omitempty"` // code -> [previous, current]
}

// DiffLog appends the structural diff between consecutive snapshots to a
// JSON-lines file. It is feature-flagged and purely diagnostic: failures
// are logged and swallowed.
type DiffLog struct {
	path string
}

// NewDiffLog creates a diff log writing to the given path.
func NewDiffLog(path string) *DiffLog {
	return &DiffLog{path: path}
}

// Append writes one diff entry comparing previous to current.
func (d *DiffLog) Append(current, previous *model.Snapshot, now time.Time) {
	entry := Diff(current, previous, now)
	if len(entry.Added) == 0 && len(entry.Removed) == 0 && len(entry.Changed) == 0 {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[DiffLog] Failed to marshal diff: %v", err)
		return
	}

	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[DiffLog] Failed to open %s: %v", d.path, err)
		return
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, string(data)); err != nil {
		log.Printf("[DiffLog] Failed to append: %v", err)
	}
}

// Diff computes the structural difference between two snapshots.
func Diff(current, previous *model.Snapshot, now time.Time) DiffEntry {
	entry := DiffEntry{Timestamp: now, Changed: map[string][2]int{}}

	for _, row := range current.Rows() {
		prev, ok := previous.Lookup(row.Code)
		if !ok {
			entry.Added = append(entry.Added, row.Code)
			continue
		}
		if prev.TotalAvailable != row.TotalAvailable {
			entry.Changed[row.Code] = [2]int{prev.TotalAvailable, row.TotalAvailable}
		}
	}
	for _, row := range previous.Rows() {
		if _, ok := current.Lookup(row.Code); !ok {
			entry.Removed = append(entry.Removed, row.Code)
		}
	}
	return entry
}
