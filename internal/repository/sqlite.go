package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"abc-inventory-monitor/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite. It is the default backend for
// single-host deployments; WAL mode keeps reads cheap while the monitor's
// single writer updates per-cycle state.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Opened %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			email_alerts INTEGER NOT NULL DEFAULT 1,
			phone_alerts INTEGER NOT NULL DEFAULT 1,
			update_on_new_data INTEGER NOT NULL DEFAULT 1,
			enable_new_data_sms_alert INTEGER NOT NULL DEFAULT 1,
			enable_new_data_email_alert INTEGER NOT NULL DEFAULT 1,
			alert_range_enabled INTEGER NOT NULL DEFAULT 0,
			alert_time_range_start INTEGER NOT NULL DEFAULT 0,
			alert_time_range_end INTEGER NOT NULL DEFAULT 0,
			alert_time_zone TEXT NOT NULL DEFAULT '',
			threshold_inventory INTEGER NOT NULL DEFAULT 1,
			min_hours_since_out_of_stock INTEGER NOT NULL DEFAULT 0,
			has_paid INTEGER NOT NULL DEFAULT 0,
			updates_sent INTEGER NOT NULL DEFAULT 0,
			plan TEXT NOT NULL DEFAULT '',
			next_billing_date TIMESTAMP NULL,
			next_billing_amount REAL NOT NULL DEFAULT 0,
			last_updated TIMESTAMP NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS phone_numbers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id TEXT NOT NULL,
			number TEXT NOT NULL,
			UNIQUE(client_id, number)
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			code TEXT PRIMARY KEY,
			brand_name TEXT NOT NULL DEFAULT '',
			total_available INTEGER NOT NULL DEFAULT 0,
			size TEXT NOT NULL DEFAULT '',
			cases_per_pallet INTEGER NOT NULL DEFAULT 0,
			supplier TEXT NOT NULL DEFAULT '',
			supplier_allotment INTEGER NOT NULL DEFAULT 0,
			broker_name TEXT NOT NULL DEFAULT '',
			out_of_stock_since TIMESTAMP NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS client_items (
			client_id TEXT NOT NULL,
			code TEXT NOT NULL,
			tracking INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (client_id, code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_phone_numbers_client ON phone_numbers(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_client_items_code ON client_items(code)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ClientIDs returns every known client id.
func (s *SQLiteStore) ClientIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetClient loads a client with its phone numbers and associations.
func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	query := `SELECT id, email, email_alerts, phone_alerts, update_on_new_data,
		enable_new_data_sms_alert, enable_new_data_email_alert,
		alert_range_enabled, alert_time_range_start, alert_time_range_end,
		alert_time_zone, threshold_inventory, min_hours_since_out_of_stock,
		has_paid, updates_sent, plan, next_billing_date, next_billing_amount,
		last_updated, created_at
		FROM clients WHERE id = ?`

	var c model.Client
	var nextBilling, lastUpdated sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Email, &c.EmailAlerts, &c.PhoneAlerts, &c.UpdateOnNewData,
		&c.EnableNewDataSMSAlert, &c.EnableNewDataEmailAlert,
		&c.AlertRangeEnabled, &c.AlertTimeRangeStart, &c.AlertTimeRangeEnd,
		&c.AlertTimeZone, &c.ThresholdInventory, &c.MinHoursSinceOutOfStock,
		&c.HasPaid, &c.UpdatesSent, &c.Plan, &nextBilling, &c.NextBillingAmount,
		&lastUpdated, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client %s: %w", id, err)
	}
	if nextBilling.Valid {
		t := nextBilling.Time
		c.NextBillingDate = &t
	}
	if lastUpdated.Valid {
		c.LastUpdated = lastUpdated.Time
	}

	numbers, err := s.phoneNumbers(ctx, id)
	if err != nil {
		return nil, err
	}
	c.PhoneNumbers = numbers

	tracked, err := s.associations(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Tracked = tracked

	return &c, nil
}

func (s *SQLiteStore) phoneNumbers(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number FROM phone_numbers WHERE client_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get phone numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (s *SQLiteStore) associations(ctx context.Context, id string) ([]model.Association, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT client_id, code, tracking FROM client_items WHERE client_id = ? ORDER BY code`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get associations: %w", err)
	}
	defer rows.Close()

	var assocs []model.Association
	for rows.Next() {
		var a model.Association
		if err := rows.Scan(&a.ClientID, &a.Code, &a.Tracking); err != nil {
			return nil, err
		}
		assocs = append(assocs, a)
	}
	return assocs, rows.Err()
}

// AddClient creates a client with default preferences. No-op if it exists.
func (s *SQLiteStore) AddClient(ctx context.Context, id, email string, phoneNumbers []string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO clients (id, email, last_updated, created_at) VALUES (?, ?, ?, ?)`,
		id, email, time.Now().UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add client %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[SQLiteStore] Created client %s", id)
	}
	if len(phoneNumbers) > 0 {
		return s.SetPhoneNumbers(ctx, id, phoneNumbers)
	}
	return nil
}

// SaveClient persists the client's preference fields.
func (s *SQLiteStore) SaveClient(ctx context.Context, c *model.Client) error {
	c.LastUpdated = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET email = ?, email_alerts = ?, phone_alerts = ?,
			update_on_new_data = ?, enable_new_data_sms_alert = ?,
			enable_new_data_email_alert = ?, alert_range_enabled = ?,
			alert_time_range_start = ?, alert_time_range_end = ?,
			alert_time_zone = ?, threshold_inventory = ?,
			min_hours_since_out_of_stock = ?, has_paid = ?, updates_sent = ?,
			plan = ?, next_billing_date = ?, next_billing_amount = ?,
			last_updated = ?
		WHERE id = ?`,
		c.Email, c.EmailAlerts, c.PhoneAlerts,
		c.UpdateOnNewData, c.EnableNewDataSMSAlert,
		c.EnableNewDataEmailAlert, c.AlertRangeEnabled,
		c.AlertTimeRangeStart, c.AlertTimeRangeEnd,
		c.AlertTimeZone, c.ThresholdInventory,
		c.MinHoursSinceOutOfStock, c.HasPaid, c.UpdatesSent,
		c.Plan, c.NextBillingDate, c.NextBillingAmount,
		c.LastUpdated, c.ID)
	if err != nil {
		return fmt.Errorf("failed to save client %s: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClient removes a client with its phone numbers and associations.
func (s *SQLiteStore) DeleteClient(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM phone_numbers WHERE client_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete phone numbers: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_items WHERE client_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete associations: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete client %s: %w", id, err)
	}
	return nil
}

// SetPhoneNumbers replaces the client's phone numbers.
func (s *SQLiteStore) SetPhoneNumbers(ctx context.Context, id string, numbers []string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM phone_numbers WHERE client_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear phone numbers: %w", err)
	}
	for _, n := range numbers {
		if n == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO phone_numbers (client_id, number) VALUES (?, ?)`, id, n); err != nil {
			return fmt.Errorf("failed to add phone number: %w", err)
		}
	}
	return nil
}

// IncrementUpdatesSent bumps the client's sent counter by n.
func (s *SQLiteStore) IncrementUpdatesSent(ctx context.Context, id string, n int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET updates_sent = updates_sent + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("failed to increment updates sent: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddTrackAssociation creates or updates a client-item association.
func (s *SQLiteStore) AddTrackAssociation(ctx context.Context, clientID, code string, tracking bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_items (client_id, code, tracking) VALUES (?, ?, ?)
		ON CONFLICT(client_id, code) DO UPDATE SET tracking = excluded.tracking`,
		clientID, code, tracking)
	if err != nil {
		return fmt.Errorf("failed to add track association: %w", err)
	}
	return nil
}

// DeleteTrackAssociation removes a client-item association.
func (s *SQLiteStore) DeleteTrackAssociation(ctx context.Context, clientID, code string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM client_items WHERE client_id = ? AND code = ?`, clientID, code)
	if err != nil {
		return fmt.Errorf("failed to delete track association: %w", err)
	}
	return nil
}

// GetItem returns the persisted state for an item code.
func (s *SQLiteStore) GetItem(ctx context.Context, code string) (*model.TrackedItem, error) {
	query := `SELECT code, brand_name, total_available, size, cases_per_pallet,
		supplier, supplier_allotment, broker_name, out_of_stock_since, created_at
		FROM items WHERE code = ?`

	var item model.TrackedItem
	var oos sql.NullTime
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&item.Code, &item.BrandName, &item.TotalAvailable, &item.Size,
		&item.CasesPerPallet, &item.Supplier, &item.SupplierAllotment,
		&item.BrokerName, &oos, &item.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item %s: %w", code, err)
	}
	if oos.Valid {
		t := oos.Time
		item.OutOfStockSince = &t
	}
	return &item, nil
}

// UpsertItem creates or refreshes an item's feed metadata.
func (s *SQLiteStore) UpsertItem(ctx context.Context, row model.InventoryRow) (*model.TrackedItem, bool, error) {
	existing, err := s.GetItem(ctx, row.Code)
	if err != nil && err != ErrNotFound {
		return nil, false, err
	}
	isNew := existing == nil

	if isNew {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO items (code, brand_name, total_available, size,
				cases_per_pallet, supplier, supplier_allotment, broker_name, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.Code, row.BrandName, row.TotalAvailable, row.Size,
			row.CasesPerPallet, row.Supplier, row.SupplierAllotment, row.BrokerName,
			time.Now().UTC())
		if err != nil {
			return nil, false, fmt.Errorf("failed to insert item %s: %w", row.Code, err)
		}
		log.Printf("[SQLiteStore] Created item [%s]", row.Code)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE items SET brand_name = ?, total_available = ?, size = ?,
				cases_per_pallet = ?, supplier = ?, supplier_allotment = ?,
				broker_name = ?
			WHERE code = ?`,
			row.BrandName, row.TotalAvailable, row.Size,
			row.CasesPerPallet, row.Supplier, row.SupplierAllotment,
			row.BrokerName, row.Code)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update item %s: %w", row.Code, err)
		}
	}

	item, err := s.GetItem(ctx, row.Code)
	if err != nil {
		return nil, false, err
	}
	return item, isNew, nil
}

// SetAvailability overwrites the stored availability for a code.
func (s *SQLiteStore) SetAvailability(ctx context.Context, code string, available int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET total_available = ? WHERE code = ?`, available, code)
	if err != nil {
		return fmt.Errorf("failed to set availability for %s: %w", code, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOutOfStockSince sets or clears the out-of-stock timestamp for a code.
func (s *SQLiteStore) SetOutOfStockSince(ctx context.Context, code string, since *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET out_of_stock_since = ? WHERE code = ?`, since, code)
	if err != nil {
		return fmt.Errorf("failed to set out-of-stock time for %s: %w", code, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
