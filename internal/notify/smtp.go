package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// SMTPSender sends email through a plain-auth SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	dryRun   bool
	verbose  bool
}

// NewSMTPSender creates an SMTP email sender.
func NewSMTPSender(host string, port int, username, password, from string, dryRun, verbose bool) *SMTPSender {
	if dryRun {
		log.Println("[SMTP] Dry run mode, email sends will be skipped")
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		dryRun:   dryRun,
		verbose:  verbose,
	}
}

// SendEmail delivers one message. In dry-run mode the message is logged
// and dropped.
func (s *SMTPSender) SendEmail(ctx context.Context, toAddress, subject, body string) error {
	if s.dryRun {
		log.Printf("[SMTP] Dry run, would send email to %s: %s", toAddress, subject)
		return nil
	}
	if s.host == "" {
		return fmt.Errorf("%w: smtp host not configured", ErrDelivery)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", toAddress)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	if err := smtp.SendMail(addr, auth, s.from, []string{toAddress}, []byte(msg.String())); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	if s.verbose {
		log.Printf("[SMTP] Sent email to %s: %s", toAddress, subject)
	}
	return nil
}

// Ensure SMTPSender implements EmailSender
var _ EmailSender = (*SMTPSender)(nil)
