package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abc-inventory-monitor/internal/gate"
	"abc-inventory-monitor/internal/model"
)

type fakeSMSSender struct {
	sent []string // "destination|body"
	fail bool
}

func (f *fakeSMSSender) SendSMS(ctx context.Context, toNumber, body string) error {
	if f.fail {
		return errors.New("twilio unavailable")
	}
	f.sent = append(f.sent, toNumber+"|"+body)
	return nil
}

type fakeEmailSender struct {
	sent []string // "address|subject|body"
	fail bool
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, toAddress, subject, body string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, toAddress+"|"+subject+"|"+body)
	return nil
}

func paidClient() *model.Client {
	return &model.Client{
		ID:           "alice",
		Email:        "alice@example.com",
		PhoneNumbers: []string{"+19195551234"},
		EmailAlerts:  true,
		PhoneAlerts:  true,
		HasPaid:      true,
	}
}

func newDispatcherFixture(maxChars, maxItems int) (*Dispatcher, *fakeSMSSender, *fakeEmailSender) {
	sms := &fakeSMSSender{}
	email := &fakeEmailSender{}
	g := gate.New(sms, nil, 0)
	return NewDispatcher(g, email, maxChars, maxItems, "Inventory Alert"), sms, email
}

func TestDispatch_SendsLinePerCandidate(t *testing.T) {
	d, sms, email := newDispatcherFixture(1200, 10)

	candidates := []model.AlertCandidate{
		{Code: "00009", BrandName: "Gentleman Jack", Quantity: 180},
		{Code: "00064", BrandName: "Blanton's Single Barrel", Quantity: 12},
	}
	d.Dispatch(context.Background(), paidClient(), candidates, false, time.Now())

	require.Len(t, sms.sent, 1)
	assert.Contains(t, sms.sent[0], "00009: Gentleman Jack is now in stock with 180\n")
	assert.Contains(t, sms.sent[0], "00064: Blanton's Single Barrel is now in stock with 12\n")

	require.Len(t, email.sent, 1)
	assert.True(t, strings.HasPrefix(email.sent[0], "alice@example.com|Inventory Alert|"))
}

func TestDispatch_EmptyCandidatesIsNoOp(t *testing.T) {
	d, sms, email := newDispatcherFixture(1200, 10)

	d.Dispatch(context.Background(), paidClient(), nil, false, time.Now())
	assert.Empty(t, sms.sent)
	assert.Empty(t, email.sent)
}

func TestDispatch_UnpaidClientIsWithheld(t *testing.T) {
	d, sms, email := newDispatcherFixture(1200, 10)

	client := paidClient()
	client.HasPaid = false
	d.Dispatch(context.Background(), client, []model.AlertCandidate{{Code: "00009", Quantity: 1}}, false, time.Now())

	assert.Empty(t, sms.sent)
	assert.Empty(t, email.sent)
}

func TestDispatch_SummarizesLongSMSKeepsFullEmail(t *testing.T) {
	d, sms, email := newDispatcherFixture(1200, 10)

	var candidates []model.AlertCandidate
	for i := 0; i < 15; i++ {
		candidates = append(candidates, model.AlertCandidate{
			Code:      fmt.Sprintf("%05d", i),
			BrandName: "Some Bourbon",
			Quantity:  i + 1,
		})
	}
	d.Dispatch(context.Background(), paidClient(), candidates, false, time.Now())

	require.Len(t, sms.sent, 1)
	assert.Contains(t, sms.sent[0], "15 new items in stock, see email")

	require.Len(t, email.sent, 1)
	assert.Equal(t, 15, strings.Count(email.sent[0], "is now in stock with"))
}

func TestDispatch_SummarizesOverCharacterLimit(t *testing.T) {
	d, sms, _ := newDispatcherFixture(40, 10)

	candidates := []model.AlertCandidate{
		{Code: "00009", BrandName: "A Very Long Brand Name Indeed", Quantity: 180},
		{Code: "00064", BrandName: "Another Long Brand Name", Quantity: 12},
	}
	d.Dispatch(context.Background(), paidClient(), candidates, false, time.Now())

	require.Len(t, sms.sent, 1)
	assert.Contains(t, sms.sent[0], "2 new items in stock, see email")
}

func TestDispatch_SMSFailureDoesNotBlockEmail(t *testing.T) {
	d, sms, email := newDispatcherFixture(1200, 10)
	sms.fail = true

	d.Dispatch(context.Background(), paidClient(), []model.AlertCandidate{{Code: "00009", Quantity: 1}}, false, time.Now())

	assert.Empty(t, sms.sent)
	require.Len(t, email.sent, 1)
}

func TestDispatch_ChannelsRespectClientToggles(t *testing.T) {
	d, sms, email := newDispatcherFixture(1200, 10)

	client := paidClient()
	client.PhoneAlerts = false
	d.Dispatch(context.Background(), client, []model.AlertCandidate{{Code: "00009", Quantity: 1}}, false, time.Now())
	assert.Empty(t, sms.sent)
	assert.Len(t, email.sent, 1)

	client = paidClient()
	client.EmailAlerts = false
	d.Dispatch(context.Background(), client, []model.AlertCandidate{{Code: "00009", Quantity: 1}}, false, time.Now())
	assert.Len(t, sms.sent, 1)
	assert.Len(t, email.sent, 1)
}

func TestDispatch_NewItemAlertsHaveTheirOwnToggles(t *testing.T) {
	d, sms, email := newDispatcherFixture(1200, 10)

	client := paidClient()
	client.EnableNewDataSMSAlert = false
	client.EnableNewDataEmailAlert = true
	d.Dispatch(context.Background(), client, []model.AlertCandidate{{Code: "00500", Quantity: 1}}, true, time.Now())
	assert.Empty(t, sms.sent)
	assert.Len(t, email.sent, 1)

	client.EnableNewDataEmailAlert = false
	d.Dispatch(context.Background(), client, []model.AlertCandidate{{Code: "00500", Quantity: 1}}, true, time.Now())
	assert.Len(t, email.sent, 1)
}

func TestDispatch_ClosedWindowQueuesWithoutSending(t *testing.T) {
	sms := &fakeSMSSender{}
	email := &fakeEmailSender{}
	g := gate.New(sms, nil, 0)
	d := NewDispatcher(g, email, 1200, 10, "Inventory Alert")

	client := paidClient()
	client.AlertRangeEnabled = true
	client.AlertTimeRangeStart = 9 * 60
	client.AlertTimeRangeEnd = 17 * 60
	client.AlertTimeZone = "UTC"

	// 03:00 UTC is outside the 09:00-17:00 window.
	at := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	d.Dispatch(context.Background(), client, []model.AlertCandidate{{Code: "00009", Quantity: 1}}, false, at)

	assert.Empty(t, sms.sent, "SMS must wait for the window")
	assert.Equal(t, 1, g.Pending("+19195551234"))
	assert.Len(t, email.sent, 1, "email is not window-gated")
}
