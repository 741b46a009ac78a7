package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

// S3API is the subset of the S3 client used by Mirror.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror copies customer MMS photos out of Twilio's short-lived media store
// into our own bucket, keyed by conversation.
type Mirror struct {
	bucket     string
	s3Client   S3API
	httpClient *http.Client
	accountSID string
	authToken  string
	logger     *logging.Logger
}

// Config holds the mirror settings. Twilio media URLs require the account
// credentials for download.
type Config struct {
	Bucket     string
	AccountSID string
	AuthToken  string
}

// NewMirror creates a Mirror. If bucket is empty, all operations are no-ops.
func NewMirror(s3Client S3API, cfg Config, logger *logging.Logger) *Mirror {
	if logger == nil {
		logger = logging.Default()
	}
	return &Mirror{
		bucket:     cfg.Bucket,
		s3Client:   s3Client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		logger:     logger,
	}
}

// Enabled returns true if mirroring is configured.
func (m *Mirror) Enabled() bool {
	return m != nil && m.bucket != "" && m.s3Client != nil
}

// MirrorPhotos downloads each media URL and stores it under the conversation.
// It returns the object keys written. A failed download skips that photo and
// keeps going; the provider URL in the conversation record still works for a
// while.
func (m *Mirror) MirrorPhotos(ctx context.Context, conversationID uuid.UUID, urls []string) ([]string, error) {
	if !m.Enabled() || len(urls) == 0 {
		return nil, nil
	}

	var keys []string
	var failed int
	for i, mediaURL := range urls {
		key, err := m.mirrorOne(ctx, conversationID, i, mediaURL)
		if err != nil {
			m.logger.Warn("photo mirror failed",
				"conversation_id", conversationID, "url", mediaURL, "error", err)
			failed++
			continue
		}
		keys = append(keys, key)
	}

	if failed > 0 && len(keys) == 0 {
		return nil, fmt.Errorf("uploads: all %d photo mirrors failed", failed)
	}
	return keys, nil
}

func (m *Mirror) mirrorOne(ctx context.Context, conversationID uuid.UUID, index int, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("uploads: build download request: %w", err)
	}
	if m.accountSID != "" {
		req.SetBasicAuth(m.accountSID, m.authToken)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploads: download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("uploads: media download returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("uploads: read media body: %w", err)
	}

	key := fmt.Sprintf("sms-media/%s/%d%s", conversationID, index, extensionFor(contentType))
	_, err = m.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploads: s3 put %s: %w", key, err)
	}

	m.logger.Info("mirrored photo to S3",
		"conversation_id", conversationID, "s3_key", key, "bytes", len(data))
	return key, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
