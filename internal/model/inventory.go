package model

import "time"

// InventoryRow is one record of the published inventory feed. Rows are
// ephemeral: they live only as long as the snapshot that contains them.
type InventoryRow struct {
	Code              string `json:"code"`
	BrandName         string `json:"brand_name"`
	TotalAvailable    int    `json:"total_available"`
	Size              string `json:"size"`
	CasesPerPallet    int    `json:"cases_per_pallet"`
	Supplier          string `json:"supplier"`
	SupplierAllotment int    `json:"supplier_allotment"`
	BrokerName        string `json:"broker_name"`
}

// Snapshot is a fully parsed inventory table keyed by item code.
// Snapshots are immutable once built; the monitor replaces them wholesale
// after each validated download.
type Snapshot struct {
	rows         []InventoryRow
	index        map[string]int
	DownloadedAt time.Time
}

// NewSnapshot builds a snapshot from parsed rows. The last row wins if a
// code appears twice (codes are unique in well-formed feeds).
func NewSnapshot(rows []InventoryRow, downloadedAt time.Time) *Snapshot {
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		index[row.Code] = i
	}
	return &Snapshot{
		rows:         rows,
		index:        index,
		DownloadedAt: downloadedAt,
	}
}

// Lookup returns the row for the given item code.
func (s *Snapshot) Lookup(code string) (InventoryRow, bool) {
	if s == nil {
		return InventoryRow{}, false
	}
	i, ok := s.index[code]
	if !ok {
		return InventoryRow{}, false
	}
	return s.rows[i], true
}

// Len returns the number of rows in the snapshot. A nil snapshot has zero rows.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rows)
}

// Rows returns the snapshot rows in feed order. Callers must not mutate them.
func (s *Snapshot) Rows() []InventoryRow {
	if s == nil {
		return nil
	}
	return s.rows
}

// Codes returns all item codes in feed order.
func (s *Snapshot) Codes() []string {
	if s == nil {
		return nil
	}
	codes := make([]string, len(s.rows))
	for i, row := range s.rows {
		codes[i] = row.Code
	}
	return codes
}

// AlertCandidate is a single (item, brand, quantity) tuple proposed by the
// evaluator for delivery to a client.
type AlertCandidate struct {
	Code      string `json:"code"`
	BrandName string `json:"brand_name"`
	Quantity  int    `json:"quantity"`
}
