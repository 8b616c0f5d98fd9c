// Package notify holds the outbound delivery transports. Transports are
// deliberately thin: all alert decision logic lives upstream in the alert
// package, and a dry-run transport still lets every decision-path side
// effect happen while suppressing the actual send.
package notify

import (
	"context"
	"errors"
)

// ErrDelivery indicates a transport-level send failure. A failure on one
// channel never blocks delivery on the other.
var ErrDelivery = errors.New("delivery failed")

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, toNumber, body string) error
}

// EmailSender delivers an email to a single address.
type EmailSender interface {
	SendEmail(ctx context.Context, toAddress, subject, body string) error
}
