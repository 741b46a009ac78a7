package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/consignedbydesign/delivery-platform/internal/messaging"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

// SMSSender sends SMS messages to operators.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

const twilioAPIBase = "https://api.twilio.com"

// TwilioSMSSender sends messages through the Twilio Messages API.
type TwilioSMSSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// TwilioConfig holds the credentials and sending number.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string // defaults to the Twilio API; override in tests
}

// NewTwilioSMSSender creates a Twilio-backed sender. Returns nil when the
// account is not configured.
func NewTwilioSMSSender(cfg TwilioConfig, logger *logging.Logger) *TwilioSMSSender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioAPIBase
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSMSSender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       messaging.NormalizeE164(cfg.FromNumber),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// SendSMS posts one outbound message.
func (s *TwilioSMSSender) SendSMS(ctx context.Context, to, body string) error {
	if s == nil {
		return fmt.Errorf("notify: twilio sender not configured")
	}

	form := url.Values{}
	form.Set("To", messaging.NormalizeE164(to))
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: build twilio request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: twilio send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.logger.Error("twilio send failed", "status", resp.StatusCode, "to", to, "body", string(payload))
		return fmt.Errorf("notify: twilio returned status %d", resp.StatusCode)
	}

	s.logger.Info("sms sent via twilio", "to", to, "status", resp.StatusCode)
	return nil
}

// StubSMSSender is a no-op sender for testing.
type StubSMSSender struct {
	logger *logging.Logger
}

// NewStubSMSSender creates a stub SMS sender.
func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

// SendSMS logs but doesn't send.
func (s *StubSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.Info("stub SMS sender: would send", "to", to, "body_preview", truncate(body, 50))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ SMSSender = (*TwilioSMSSender)(nil)
var _ SMSSender = (*StubSMSSender)(nil)
