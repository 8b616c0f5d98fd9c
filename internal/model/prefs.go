package model

import (
	"strconv"
	"strings"
	"time"
)

// Tracking action values used in the remote preference documents.
const (
	ActionTracking    = "TRACKING"
	ActionNotTracking = "UNTRACKED"
)

// DefaultAlertTimeZone is applied to documents with no timezone set.
var DefaultAlertTimeZone = TimeZonePref{
	Abbrev:  "PDT",
	AltName: "Pacific Daylight Time",
	Label:   "(GMT-07:00) Pacific Time",
	Offset:  -7,
	Value:   "America/Los_Angeles",
}

// PrefDoc is the client preference document mirrored with the remote
// document store. Every field is explicit; there is no string-keyed path
// traversal anywhere in the reconciliation code.
type PrefDoc struct {
	Inventory   InventoryPrefs `bson:"inventory" json:"inventory"`
	Preferences Preferences    `bson:"preferences" json:"preferences"`
	Accounting  Accounting     `bson:"accounting" json:"accounting"`
	UpdatedAt   time.Time      `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// InventoryPrefs lists the items the client cares about, keyed by code,
// plus the client's restock alert knobs.
type InventoryPrefs struct {
	Items map[string]ItemPref `bson:"items" json:"items"`

	// InventoryChange is the minimum availability delta worth alerting on.
	InventoryChange         int `bson:"inventoryChange" json:"inventoryChange"`
	MinHoursSinceOutOfStock int `bson:"min_hours_since_out_of_stock" json:"min_hours_since_out_of_stock"`
}

// Accounting is the billing subtree. Delivery is withheld for clients
// that have not paid.
type Accounting struct {
	HasPaid           bool    `bson:"hasPaid" json:"hasPaid"`
	NextBillingAmount float64 `bson:"nextBillingAmount" json:"nextBillingAmount"`
}

// ItemPref describes one item entry in a preference document.
type ItemPref struct {
	Name      string `bson:"name" json:"name"`
	Action    string `bson:"action" json:"action"`
	Inventory int    `bson:"inventory" json:"inventory"`
}

// Preferences holds the notification settings subtree.
type Preferences struct {
	Notifications   Notifications `bson:"notifications" json:"notifications"`
	UpdateOnNewData bool          `bson:"updateOnNewData" json:"updateOnNewData"`
}

// Notifications holds per-channel settings and the send window.
type Notifications struct {
	Email          EmailPref    `bson:"email" json:"email"`
	SMS            SMSPref      `bson:"sms" json:"sms"`
	AlertTimeRange []int        `bson:"alertTimeRange" json:"alertTimeRange"` // [startMinute, endMinute]
	AlertTimeZone  TimeZonePref `bson:"alertTimeZone" json:"alertTimeZone"`
}

// EmailPref is the email channel configuration.
type EmailPref struct {
	Email          string `bson:"email" json:"email"`
	UpdatesEnabled bool   `bson:"updatesEnabled" json:"updatesEnabled"`
}

// SMSPref is the SMS channel configuration. PhoneNumber is a legacy
// single-number field still present in older documents; Normalize folds it
// into PhoneNumbers.
type SMSPref struct {
	PhoneNumbers   map[string]string `bson:"phoneNumbers" json:"phoneNumbers"`
	PhoneNumber    string            `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	UpdatesEnabled bool              `bson:"updatesEnabled" json:"updatesEnabled"`
}

// TimeZonePref mirrors the timezone picker object stored by the web UI.
type TimeZonePref struct {
	Abbrev  string `bson:"abbrev" json:"abbrev"`
	AltName string `bson:"altName" json:"altName"`
	Label   string `bson:"label" json:"label"`
	Offset  int    `bson:"offset" json:"offset"`
	Value   string `bson:"value" json:"value"`
}

// NewPrefDoc returns a document with every subtree initialized to defaults.
func NewPrefDoc() PrefDoc {
	return PrefDoc{
		Inventory: InventoryPrefs{Items: map[string]ItemPref{}},
		Preferences: Preferences{
			Notifications: Notifications{
				SMS:           SMSPref{PhoneNumbers: map[string]string{}},
				AlertTimeZone: DefaultAlertTimeZone,
			},
		},
	}
}

// Normalize patches missing subtrees with defaults, migrates the legacy
// single phone number field, and scrubs phone numbers to E.164. It reports
// whether the document was changed and therefore needs to be pushed back.
func (d *PrefDoc) Normalize() bool {
	changed := false

	if d.Inventory.Items == nil {
		d.Inventory.Items = map[string]ItemPref{}
		changed = true
	}
	sms := &d.Preferences.Notifications.SMS
	if sms.PhoneNumbers == nil {
		sms.PhoneNumbers = map[string]string{}
		changed = true
	}
	if sms.PhoneNumber != "" && len(sms.PhoneNumbers) == 0 {
		sms.PhoneNumbers["0"] = sms.PhoneNumber
		changed = true
	}
	for key, number := range sms.PhoneNumbers {
		scrubbed := ScrubPhoneNumber(number)
		if scrubbed != number {
			sms.PhoneNumbers[key] = scrubbed
			changed = true
		}
	}
	if d.Preferences.Notifications.AlertTimeZone.Value == "" {
		d.Preferences.Notifications.AlertTimeZone = DefaultAlertTimeZone
		changed = true
	}
	return changed
}

// PhoneNumbers returns the scrubbed numbers in a stable order (key order is
// the stringified index assigned by the UI).
func (d *PrefDoc) PhoneNumbers() []string {
	sms := d.Preferences.Notifications.SMS
	numbers := make([]string, 0, len(sms.PhoneNumbers))
	for i := 0; i < len(sms.PhoneNumbers); i++ {
		key := strconv.Itoa(i)
		if n, ok := sms.PhoneNumbers[key]; ok && n != "" {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		for _, n := range sms.PhoneNumbers {
			if n != "" {
				numbers = append(numbers, n)
			}
		}
	}
	return numbers
}

// ScrubPhoneNumber strips formatting characters and normalizes US numbers
// to +1XXXXXXXXXX.
func ScrubPhoneNumber(raw string) string {
	var digits strings.Builder
	for _, c := range raw {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	n := digits.String()
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "1") && len(n) == 11 {
		n = n[1:]
	}
	return "+1" + n
}
