package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearbrook/clinic-ops/internal/notifications"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

// Service mails a copy of each published notification record to the
// configured operator inboxes. Delivery is best-effort; the WebSocket
// broadcast is the primary channel and does not wait on email.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewService creates an email fan-out service. A nil sender or empty
// recipient list yields a nil service, which callers may pass around freely.
func NewService(email EmailSender, recipients []string, logger *logging.Logger) *Service {
	if email == nil || len(recipients) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipients: recipients,
		logger:     logger,
	}
}

// Deliver sends the record to every configured recipient. Individual send
// failures are collected so one bad inbox does not starve the rest.
func (s *Service) Deliver(ctx context.Context, rec notifications.Record) error {
	if s == nil {
		return nil
	}

	subject := fmt.Sprintf("[%s] %s", rec.Category, firstLine(rec.Body))
	body := rec.Body
	if rec.OrgID != "" {
		body = fmt.Sprintf("%s\n\nClinic: %s", rec.Body, rec.OrgID)
	}

	var failed []string
	for _, to := range s.recipients {
		msg := EmailMessage{
			To:      to,
			Subject: subject,
			Body:    body,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Warn("operator email failed", "error", err, "to", to, "notification_id", rec.ID)
			failed = append(failed, to)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: delivery failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
