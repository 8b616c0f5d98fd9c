package model

import "time"

// Client is a subscriber with delivery channels and alerting preferences.
// A client may reference item codes that are no longer published in the
// feed; stale associations are expected and tolerated.
type Client struct {
	ID                      string     `json:"id"`
	Email                   string     `json:"email"`
	PhoneNumbers            []string   `json:"phone_numbers"`
	EmailAlerts             bool       `json:"email_alerts"`
	PhoneAlerts             bool       `json:"phone_alerts"`
	UpdateOnNewData         bool       `json:"update_on_new_data"`
	EnableNewDataSMSAlert   bool       `json:"enable_new_data_sms_alert"`
	EnableNewDataEmailAlert bool       `json:"enable_new_data_email_alert"`
	AlertRangeEnabled       bool       `json:"alert_range_enabled"`
	AlertTimeRangeStart     int        `json:"alert_time_range_start"` // minutes after midnight
	AlertTimeRangeEnd       int        `json:"alert_time_range_end"`   // minutes after midnight
	AlertTimeZone           string     `json:"alert_time_zone"`        // IANA zone name
	ThresholdInventory      int        `json:"threshold_inventory"`
	MinHoursSinceOutOfStock int        `json:"min_hours_since_out_of_stock"`
	HasPaid                 bool       `json:"has_paid"`
	UpdatesSent             int        `json:"updates_sent"`
	Plan                    string     `json:"plan"`
	NextBillingDate         *time.Time `json:"next_billing_date,omitempty"`
	NextBillingAmount       float64    `json:"next_billing_amount"`
	LastUpdated             time.Time  `json:"last_updated"`
	CreatedAt               time.Time  `json:"created_at"`

	// Tracked holds every item association for this client, including
	// ones with the tracking flag off.
	Tracked []Association `json:"tracked"`
}

// IsAssociated reports whether the client already has any association
// (tracking or not) with the given item code.
func (c *Client) IsAssociated(code string) bool {
	for _, a := range c.Tracked {
		if a.Code == code {
			return true
		}
	}
	return false
}

// Association links a client to an item code. Tracking, not mere presence
// of the association, gates whether deltas are evaluated for the client.
type Association struct {
	ClientID string `json:"client_id"`
	Code     string `json:"code"`
	Tracking bool   `json:"tracking"`
}

// TrackedItem is the persisted per-item state: the last known availability
// plus the timestamp of the most recent transition to zero.
type TrackedItem struct {
	Code              string     `json:"code"`
	BrandName         string     `json:"brand_name"`
	TotalAvailable    int        `json:"total_available"`
	Size              string     `json:"size"`
	CasesPerPallet    int        `json:"cases_per_pallet"`
	Supplier          string     `json:"supplier"`
	SupplierAllotment int        `json:"supplier_allotment"`
	BrokerName        string     `json:"broker_name"`
	OutOfStockSince   *time.Time `json:"out_of_stock_since,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
