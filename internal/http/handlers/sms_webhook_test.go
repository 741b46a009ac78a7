package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consignedbydesign/delivery-platform/internal/conversation"
)

type fakeProcessor struct {
	reply string
	err   error
	last  conversation.InboundMessage
	calls int
}

func (f *fakeProcessor) HandleInbound(_ context.Context, msg conversation.InboundMessage) (string, error) {
	f.calls++
	f.last = msg
	return f.reply, f.err
}

func webhookForm(values map[string]string) url.Values {
	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}
	return form
}

func postWebhook(h http.Handler, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func signForm(authToken, webhookURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(webhookURL)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSMSWebhookRepliesWithTwiML(t *testing.T) {
	proc := &fakeProcessor{reply: "Thanks! What name should we use?"}
	h := NewSMSWebhookHandler(proc, "", "", nil)

	form := webhookForm(map[string]string{
		"MessageSid": "SM123",
		"From":       "+13175550147",
		"Body":       "DELIVERY",
	})
	rec := postWebhook(h, form, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "<Response><Message>Thanks! What name should we use?</Message></Response>")

	assert.Equal(t, "SM123", proc.last.MessageID)
	assert.Equal(t, "+13175550147", proc.last.From)
	assert.Equal(t, "DELIVERY", proc.last.Body)
}

func TestSMSWebhookCollectsMediaURLs(t *testing.T) {
	proc := &fakeProcessor{reply: "Got the photos."}
	h := NewSMSWebhookHandler(proc, "", "", nil)

	form := webhookForm(map[string]string{
		"MessageSid": "SM200",
		"From":       "+13175550147",
		"Body":       "pickup",
		"NumMedia":   "2",
		"MediaUrl0":  "https://api.twilio.com/media/0",
		"MediaUrl1":  "https://api.twilio.com/media/1",
	})
	rec := postWebhook(h, form, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{
		"https://api.twilio.com/media/0",
		"https://api.twilio.com/media/1",
	}, proc.last.MediaURLs)
}

func TestSMSWebhookRejectsMissingSender(t *testing.T) {
	proc := &fakeProcessor{reply: "ok"}
	h := NewSMSWebhookHandler(proc, "", "", nil)

	rec := postWebhook(h, webhookForm(map[string]string{"Body": "hi"}), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, proc.calls)
}

func TestSMSWebhookBusyReturns503(t *testing.T) {
	proc := &fakeProcessor{err: conversation.ErrBusy}
	h := NewSMSWebhookHandler(proc, "", "", nil)

	form := webhookForm(map[string]string{
		"MessageSid": "SM300",
		"From":       "+13175550147",
		"Body":       "hello",
	})
	rec := postWebhook(h, form, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSMSWebhookProcessorErrorReturns500(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("db down")}
	h := NewSMSWebhookHandler(proc, "", "", nil)

	form := webhookForm(map[string]string{
		"MessageSid": "SM400",
		"From":       "+13175550147",
		"Body":       "hello",
	})
	rec := postWebhook(h, form, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSMSWebhookSignatureValidation(t *testing.T) {
	const authToken = "twilio-auth-token"
	proc := &fakeProcessor{reply: "ok"}
	h := NewSMSWebhookHandler(proc, authToken, "", nil)

	form := webhookForm(map[string]string{
		"MessageSid": "SM500",
		"From":       "+13175550147",
		"Body":       "hello",
	})

	t.Run("valid signature accepted", func(t *testing.T) {
		sig := signForm(authToken, "http://example.com/webhooks/twilio/sms", form)
		rec := postWebhook(h, form, map[string]string{
			"X-Twilio-Signature": sig,
			"Host":               "example.com",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		rec := postWebhook(h, form, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong signature rejected", func(t *testing.T) {
		rec := postWebhook(h, form, map[string]string{"X-Twilio-Signature": "bogus"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSMSWebhookSignatureUsesPublicBaseURL(t *testing.T) {
	// Behind a proxy the request host differs from the URL Twilio signed;
	// the configured base URL must win.
	const authToken = "twilio-auth-token"
	proc := &fakeProcessor{reply: "ok"}
	h := NewSMSWebhookHandler(proc, authToken, "https://sms.consignedbydesign.com/", nil)

	form := webhookForm(map[string]string{
		"MessageSid": "SM600",
		"From":       "+13175550147",
		"Body":       "hello",
	})
	sig := signForm(authToken, "https://sms.consignedbydesign.com/webhooks/twilio/sms", form)
	rec := postWebhook(h, form, map[string]string{"X-Twilio-Signature": sig})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postWebhook(h, form, map[string]string{
		"X-Twilio-Signature": signForm(authToken, "http://example.com/webhooks/twilio/sms", form),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
