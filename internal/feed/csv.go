package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"abc-inventory-monitor/internal/model"
)

// Feed column headers. Matching is case-insensitive on the trimmed header.
const (
	colCode              = "nc code"
	colBrandName         = "brand name"
	colTotalAvailable    = "total available"
	colSize              = "size"
	colCasesPerPallet    = "cases per pallet"
	colSupplier          = "supplier"
	colSupplierAllotment = "supplier allotment"
	colBrokerName        = "broker name"
)

// ParseFile reads a CSV feed file into a snapshot.
func ParseFile(path string, downloadedAt time.Time) (*model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer f.Close()

	return Parse(f, downloadedAt)
}

// Parse reads a CSV feed into a snapshot. The first row must be a header
// containing at least the item code, brand name and total available
// columns. Malformed data rows are skipped with a log line rather than
// failing the whole snapshot.
func Parse(r io.Reader, downloadedAt time.Time) (*model.Snapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	// The export wraps codes as ="00009", which puts bare quotes inside an
	// unquoted field.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return model.NewSnapshot(nil, downloadedAt), nil
		}
		return nil, fmt.Errorf("failed to read feed header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colCode, colBrandName, colTotalAvailable} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("feed header missing %q column", required)
		}
	}

	var rows []model.InventoryRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[Feed] Skipping unreadable row: %v", err)
			continue
		}

		code := stripCellQuoting(field(record, cols, colCode))
		if code == "" {
			continue
		}

		available, err := strconv.Atoi(strings.TrimSpace(field(record, cols, colTotalAvailable)))
		if err != nil || available < 0 {
			log.Printf("[Feed] Skipping row %s: bad total available %q", code, field(record, cols, colTotalAvailable))
			continue
		}

		rows = append(rows, model.InventoryRow{
			Code:              code,
			BrandName:         strings.TrimSpace(field(record, cols, colBrandName)),
			TotalAvailable:    available,
			Size:              strings.TrimSpace(field(record, cols, colSize)),
			CasesPerPallet:    atoiOrZero(field(record, cols, colCasesPerPallet)),
			Supplier:          strings.TrimSpace(field(record, cols, colSupplier)),
			SupplierAllotment: atoiOrZero(field(record, cols, colSupplierAllotment)),
			BrokerName:        strings.TrimSpace(field(record, cols, colBrokerName)),
		})
	}

	return model.NewSnapshot(rows, downloadedAt), nil
}

// stripCellQuoting removes the ="CODE" spreadsheet artifact the export
// endpoint wraps item codes in.
func stripCellQuoting(cell string) string {
	cell = strings.TrimSpace(cell)
	if strings.HasPrefix(cell, `="`) && strings.HasSuffix(cell, `"`) && len(cell) >= 3 {
		cell = cell[2 : len(cell)-1]
	}
	return strings.TrimSpace(cell)
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
