package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/consignedbydesign/delivery-platform/internal/conversation"
	"github.com/consignedbydesign/delivery-platform/internal/messaging"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

// Service alerts the scheduler when a customer finishes a request. Failures
// here never surface to the customer; the request is already persisted.
type Service struct {
	email          EmailSender
	sms            SMSSender
	schedulerPhone string
	schedulerEmail string
	logger         *logging.Logger
}

// ServiceConfig holds the scheduler contact points.
type ServiceConfig struct {
	SchedulerPhone string
	SchedulerEmail string
}

// NewService creates a notification service. Either sender may be nil when
// that channel is not configured.
func NewService(email EmailSender, sms SMSSender, cfg ServiceConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:          email,
		sms:            sms,
		schedulerPhone: cfg.SchedulerPhone,
		schedulerEmail: cfg.SchedulerEmail,
		logger:         logger,
	}
}

// NotifyCompleted fans out a summary of a freshly completed conversation.
func (s *Service) NotifyCompleted(ctx context.Context, conv *conversation.Conversation) error {
	if conv == nil || conv.Stage != conversation.StageCompleted {
		return nil
	}

	kind := "Delivery"
	if conv.Kind == conversation.KindPickup {
		kind = "Pickup"
	}
	summary := s.buildSummary(kind, conv)

	var errs []error
	if s.sms != nil && s.schedulerPhone != "" {
		smsBody := fmt.Sprintf("New %s request from %s (%s). %s, %s %s. %s",
			strings.ToLower(kind), conv.CustomerName, messaging.FormatDisplay(conv.CallbackPhone),
			conv.AddressLine1, conv.City, conv.Zip, conv.Notes)
		if err := s.sms.SendSMS(ctx, s.schedulerPhone, smsBody); err != nil {
			s.logger.Error("scheduler SMS failed", "error", err, "conversation_id", conv.ID)
			errs = append(errs, err)
		}
	}

	if s.email != nil && s.schedulerEmail != "" {
		msg := EmailMessage{
			To:      s.schedulerEmail,
			Subject: fmt.Sprintf("New %s Request - %s", kind, conv.CustomerName),
			Body:    summary,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("scheduler email failed", "error", err, "conversation_id", conv.ID)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

func (s *Service) buildSummary(kind string, conv *conversation.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new %s request came in via SMS.\n\n", strings.ToLower(kind))
	fmt.Fprintf(&b, "Customer: %s\n", conv.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", messaging.FormatDisplay(conv.CallbackPhone))
	fmt.Fprintf(&b, "Address: %s, %s, %s %s\n", conv.AddressLine1, conv.City, conv.State, conv.Zip)
	if conv.ItemDescription != "" {
		fmt.Fprintf(&b, "Item: %s\n", conv.ItemDescription)
	}
	if len(conv.PhotoURLs) > 0 {
		fmt.Fprintf(&b, "Photos: %d attached\n", len(conv.PhotoURLs))
		for _, u := range conv.PhotoURLs {
			fmt.Fprintf(&b, "  %s\n", u)
		}
	}
	if conv.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", conv.Notes)
	}
	b.WriteString("\nPlease review and schedule.\n")
	return b.String()
}
