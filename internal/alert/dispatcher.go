package alert

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"abc-inventory-monitor/internal/gate"
	"abc-inventory-monitor/internal/model"
	"abc-inventory-monitor/internal/notify"
)

// Dispatcher batches a client's alert candidates into a single message and
// routes it to the enabled channels. SMS goes through the send-window gate
// per phone number; email is delivered directly. A failure on one channel
// never blocks the other.
type Dispatcher struct {
	gate         *gate.Gate
	email        notify.EmailSender
	maxSMSChars  int
	maxSMSItems  int
	emailSubject string
}

// NewDispatcher creates a dispatcher. maxSMSChars and maxSMSItems bound
// the SMS body; past either limit the SMS carries a short summary while
// the email keeps the full text.
func NewDispatcher(g *gate.Gate, email notify.EmailSender, maxSMSChars, maxSMSItems int, emailSubject string) *Dispatcher {
	return &Dispatcher{
		gate:         g,
		email:        email,
		maxSMSChars:  maxSMSChars,
		maxSMSItems:  maxSMSItems,
		emailSubject: emailSubject,
	}
}

// ComposeBody renders one line per candidate.
func ComposeBody(candidates []model.AlertCandidate) string {
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "%s: %s is now in stock with %d\n", c.Code, c.BrandName, c.Quantity)
	}
	return b.String()
}

// Dispatch sends the candidate batch to the client over its enabled
// channels. Evaluation accounting has already happened upstream; unpaid
// clients are withheld here without unwinding it.
func (d *Dispatcher) Dispatch(ctx context.Context, client *model.Client, candidates []model.AlertCandidate, isNewItemAlert bool, now time.Time) {
	if len(candidates) == 0 {
		return
	}

	if !client.HasPaid {
		log.Printf("[Dispatcher] Withholding %d alerts for unpaid client %s", len(candidates), client.ID)
		return
	}

	body := ComposeBody(candidates)
	smsBody := body
	if len(body) > d.maxSMSChars || len(candidates) > d.maxSMSItems {
		smsBody = fmt.Sprintf("%d new items in stock, see email", len(candidates))
	}

	if d.smsEnabled(client, isNewItemAlert) {
		window := clientWindow(client)
		for _, number := range client.PhoneNumbers {
			d.gate.SetWindow(number, window)
			if err := d.gate.Enqueue(ctx, number, smsBody, now); err != nil {
				log.Printf("[Dispatcher] SMS to %s for client %s failed: %v", number, client.ID, err)
			}
		}
	}

	if d.emailEnabled(client, isNewItemAlert) {
		if err := d.email.SendEmail(ctx, client.Email, d.emailSubject, body); err != nil {
			log.Printf("[Dispatcher] Email to %s for client %s failed: %v", client.Email, client.ID, err)
		}
	}
}

func (d *Dispatcher) smsEnabled(client *model.Client, isNewItemAlert bool) bool {
	if !client.PhoneAlerts || len(client.PhoneNumbers) == 0 {
		return false
	}
	if isNewItemAlert && !client.EnableNewDataSMSAlert {
		return false
	}
	return true
}

func (d *Dispatcher) emailEnabled(client *model.Client, isNewItemAlert bool) bool {
	if !client.EmailAlerts || client.Email == "" {
		return false
	}
	if isNewItemAlert && !client.EnableNewDataEmailAlert {
		return false
	}
	return true
}

// clientWindow builds the gate window from the client's alert range
// preferences.
func clientWindow(client *model.Client) gate.Window {
	return gate.Window{
		StartMinute: client.AlertTimeRangeStart,
		EndMinute:   client.AlertTimeRangeEnd,
		Timezone:    client.AlertTimeZone,
		Ignore:      !client.AlertRangeEnabled,
	}
}
