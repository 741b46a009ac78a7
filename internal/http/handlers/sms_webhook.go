package handlers

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/consignedbydesign/delivery-platform/internal/conversation"
	"github.com/consignedbydesign/delivery-platform/internal/messaging"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

var smsTracer = otel.Tracer("consigned.internal.http.sms_webhook")

// InboundProcessor runs one conversation turn and returns the reply text.
type InboundProcessor interface {
	HandleInbound(ctx context.Context, msg conversation.InboundMessage) (string, error)
}

// SMSWebhookHandler receives Twilio SMS/MMS webhooks and answers with TwiML.
type SMSWebhookHandler struct {
	service       InboundProcessor
	authToken     string
	publicBaseURL string
	logger        *logging.Logger
}

// NewSMSWebhookHandler creates the webhook handler. An empty authToken skips
// signature validation (local development only). publicBaseURL, when set,
// overrides the Host/X-Forwarded-* reconstruction for the signed URL: Twilio
// signs the URL it was configured with, which behind some proxies is not
// recoverable from the request.
func NewSMSWebhookHandler(service InboundProcessor, authToken, publicBaseURL string, logger *logging.Logger) *SMSWebhookHandler {
	if service == nil {
		panic("handlers: inbound processor required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SMSWebhookHandler{
		service:       service,
		authToken:     authToken,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// ServeHTTP handles POST /webhooks/twilio/sms.
func (h *SMSWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := smsTracer.Start(r.Context(), "sms.webhook",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	if h.authToken != "" {
		if !messaging.ValidateTwilioSignature(r, h.authToken, h.webhookURL(r)) {
			h.logger.Warn("invalid twilio signature", "remote_ip", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			span.RecordError(errors.New("invalid twilio signature"))
			return
		}
	}

	webhook, err := messaging.ParseTwilioWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}
	span.SetAttributes(
		attribute.String("twilio.message_sid", webhook.MessageSid),
		attribute.Int("twilio.num_media", webhook.NumMedia),
	)

	if webhook.From == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	reply, err := h.service.HandleInbound(ctx, conversation.InboundMessage{
		MessageID: webhook.MessageSid,
		From:      webhook.From,
		Body:      webhook.Body,
		MediaURLs: webhook.MediaURLs,
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, conversation.ErrBusy) {
			// Twilio retries on 503; the retry lands after the in-flight
			// turn releases the phone.
			http.Error(w, "Busy", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("inbound message processing failed",
			"error", err, "message_sid", webhook.MessageSid)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeTwiML(w, reply)
}

func writeTwiML(w http.ResponseWriter, message string) {
	body, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

func (h *SMSWebhookHandler) webhookURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + r.URL.RequestURI()
	}
	return buildAbsoluteURL(r)
}

func buildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
