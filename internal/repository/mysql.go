package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"abc-inventory-monitor/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore implements Store using MySQL, for deployments where the
// monitor shares a database with other tooling.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore connects to MySQL using the given DSN.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("[MySQLStore] Connected")
	return &MySQLStore{db: db}, nil
}

func createMySQLTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id VARCHAR(80) PRIMARY KEY,
			email VARCHAR(80) NOT NULL DEFAULT '',
			email_alerts TINYINT(1) NOT NULL DEFAULT 1,
			phone_alerts TINYINT(1) NOT NULL DEFAULT 1,
			update_on_new_data TINYINT(1) NOT NULL DEFAULT 1,
			enable_new_data_sms_alert TINYINT(1) NOT NULL DEFAULT 1,
			enable_new_data_email_alert TINYINT(1) NOT NULL DEFAULT 1,
			alert_range_enabled TINYINT(1) NOT NULL DEFAULT 0,
			alert_time_range_start INT NOT NULL DEFAULT 0,
			alert_time_range_end INT NOT NULL DEFAULT 0,
			alert_time_zone VARCHAR(80) NOT NULL DEFAULT '',
			threshold_inventory INT NOT NULL DEFAULT 1,
			min_hours_since_out_of_stock INT NOT NULL DEFAULT 0,
			has_paid TINYINT(1) NOT NULL DEFAULT 0,
			updates_sent INT NOT NULL DEFAULT 0,
			plan VARCHAR(80) NOT NULL DEFAULT '',
			next_billing_date DATETIME NULL,
			next_billing_amount DOUBLE NOT NULL DEFAULT 0,
			last_updated DATETIME NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS phone_numbers (
			id INT AUTO_INCREMENT PRIMARY KEY,
			client_id VARCHAR(80) NOT NULL,
			number VARCHAR(16) NOT NULL,
			UNIQUE KEY uniq_client_number (client_id, number),
			KEY idx_phone_numbers_client (client_id)
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			code VARCHAR(80) PRIMARY KEY,
			brand_name VARCHAR(100) NOT NULL DEFAULT '',
			total_available INT NOT NULL DEFAULT 0,
			size VARCHAR(100) NOT NULL DEFAULT '',
			cases_per_pallet INT NOT NULL DEFAULT 0,
			supplier VARCHAR(100) NOT NULL DEFAULT '',
			supplier_allotment INT NOT NULL DEFAULT 0,
			broker_name VARCHAR(100) NOT NULL DEFAULT '',
			out_of_stock_since DATETIME NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS client_items (
			client_id VARCHAR(80) NOT NULL,
			code VARCHAR(80) NOT NULL,
			tracking TINYINT(1) NOT NULL DEFAULT 1,
			PRIMARY KEY (client_id, code),
			KEY idx_client_items_code (code)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ClientIDs returns every known client id.
func (s *MySQLStore) ClientIDs(ctx context.Context) ([]string, error) {
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
func (s *MySQLStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
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

	rows, err := s.db.QueryContext(ctx,
		`SELECT number FROM phone_numbers WHERE client_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get phone numbers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		c.PhoneNumbers = append(c.PhoneNumbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	assocRows, err := s.db.QueryContext(ctx,
		`SELECT client_id, code, tracking FROM client_items WHERE client_id = ? ORDER BY code`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get associations: %w", err)
	}
	defer assocRows.Close()
	for assocRows.Next() {
		var a model.Association
		if err := assocRows.Scan(&a.ClientID, &a.Code, &a.Tracking); err != nil {
			return nil, err
		}
		c.Tracked = append(c.Tracked, a)
	}
	if err := assocRows.Err(); err != nil {
		return nil, err
	}

	return &c, nil
}

// AddClient creates a client with default preferences. No-op if it exists.
func (s *MySQLStore) AddClient(ctx context.Context, id, email string, phoneNumbers []string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT IGNORE INTO clients (id, email, last_updated, created_at) VALUES (?, ?, ?, ?)`,
		id, email, time.Now().UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add client %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[MySQLStore] Created client %s", id)
	}
	if len(phoneNumbers) > 0 {
		return s.SetPhoneNumbers(ctx, id, phoneNumbers)
	}
	return nil
}

// SaveClient persists the client's preference fields.
func (s *MySQLStore) SaveClient(ctx context.Context, c *model.Client) error {
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
		// MySQL reports zero affected rows for no-change updates too, so
		// distinguish a genuinely missing client.
		var exists int
		if scanErr := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM clients WHERE id = ?`, c.ID).Scan(&exists); scanErr == nil && exists == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// DeleteClient removes a client with its phone numbers and associations.
func (s *MySQLStore) DeleteClient(ctx context.Context, id string) error {
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
func (s *MySQLStore) SetPhoneNumbers(ctx context.Context, id string, numbers []string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM phone_numbers WHERE client_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear phone numbers: %w", err)
	}
	for _, n := range numbers {
		if n == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT IGNORE INTO phone_numbers (client_id, number) VALUES (?, ?)`, id, n); err != nil {
			return fmt.Errorf("failed to add phone number: %w", err)
		}
	}
	return nil
}

// IncrementUpdatesSent bumps the client's sent counter by n.
func (s *MySQLStore) IncrementUpdatesSent(ctx context.Context, id string, n int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE clients SET updates_sent = updates_sent + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("failed to increment updates sent: %w", err)
	}
	return nil
}

// AddTrackAssociation creates or updates a client-item association.
func (s *MySQLStore) AddTrackAssociation(ctx context.Context, clientID, code string, tracking bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_items (client_id, code, tracking) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE tracking = VALUES(tracking)`,
		clientID, code, tracking)
	if err != nil {
		return fmt.Errorf("failed to add track association: %w", err)
	}
	return nil
}

// DeleteTrackAssociation removes a client-item association.
func (s *MySQLStore) DeleteTrackAssociation(ctx context.Context, clientID, code string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM client_items WHERE client_id = ? AND code = ?`, clientID, code)
	if err != nil {
		return fmt.Errorf("failed to delete track association: %w", err)
	}
	return nil
}

// GetItem returns the persisted state for an item code.
func (s *MySQLStore) GetItem(ctx context.Context, code string) (*model.TrackedItem, error) {
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
func (s *MySQLStore) UpsertItem(ctx context.Context, row model.InventoryRow) (*model.TrackedItem, bool, error) {
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
		log.Printf("[MySQLStore] Created item [%s]", row.Code)
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
func (s *MySQLStore) SetAvailability(ctx context.Context, code string, available int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET total_available = ? WHERE code = ?`, available, code)
	if err != nil {
		return fmt.Errorf("failed to set availability for %s: %w", code, err)
	}
	return nil
}

// SetOutOfStockSince sets or clears the out-of-stock timestamp for a code.
func (s *MySQLStore) SetOutOfStockSince(ctx context.Context, code string, since *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET out_of_stock_since = ? WHERE code = ?`, since, code)
	if err != nil {
		return fmt.Errorf("failed to set out-of-stock time for %s: %w", code, err)
	}
	return nil
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Ensure MySQLStore implements Store
var _ Store = (*MySQLStore)(nil)
