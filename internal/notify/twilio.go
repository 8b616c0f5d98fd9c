package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioSender sends SMS through the Twilio Messages REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
	dryRun     bool
	verbose    bool
}

// NewTwilioSender creates a Twilio SMS sender.
func NewTwilioSender(accountSID, authToken, fromNumber string, dryRun, verbose bool) *TwilioSender {
	if dryRun {
		log.Println("[Twilio] Dry run mode, SMS sends will be skipped")
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    twilioBaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		dryRun:     dryRun,
		verbose:    verbose,
	}
}

// SetBaseURL overrides the API endpoint (tests point this at a local server).
func (t *TwilioSender) SetBaseURL(u string) {
	t.baseURL = u
}

// SendSMS posts one message to the Twilio API. In dry-run mode the message
// is logged and dropped.
func (t *TwilioSender) SendSMS(ctx context.Context, toNumber, body string) error {
	if t.dryRun {
		log.Printf("[Twilio] Dry run, would send SMS to %s: %s", toNumber, body)
		return nil
	}
	if t.accountSID == "" || t.authToken == "" {
		return fmt.Errorf("%w: twilio credentials not configured", ErrDelivery)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", t.fromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: twilio status %d: %s", ErrDelivery, resp.StatusCode, string(msg))
	}

	if t.verbose {
		log.Printf("[Twilio] Sent SMS to %s (%d chars)", toNumber, len(body))
	}
	return nil
}

// Ensure TwilioSender implements SMSSender
var _ SMSSender = (*TwilioSender)(nil)
