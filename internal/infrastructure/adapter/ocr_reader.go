package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
)

// OCRConfig configures the remote ID-card OCR provider.
type OCRConfig struct {
	// URL receives the raw image as the POST body.
	URL string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a transport failure.
	MaxRetries int
	// RetryBackoff is the base delay, doubled per attempt.
	RetryBackoff time.Duration
}

// HTTPDoer is the part of *http.Client the reader needs, so tests can swap
// the transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OCRIdentityReader implements port.IdentityDocumentReader against an HTTP
// OCR service that answers with the IdentityDocument JSON shape.
type OCRIdentityReader struct {
	config OCRConfig
	client HTTPDoer
	logger *slog.Logger
}

// NewOCRIdentityReader creates a reader. A nil client uses an http.Client
// with config.Timeout.
func NewOCRIdentityReader(config OCRConfig, client HTTPDoer, logger *slog.Logger) *OCRIdentityReader {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 200 * time.Millisecond
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRIdentityReader{config: config, client: client, logger: logger}
}

// Read posts the image and decodes the provider's answer. Transport failures
// and 5xx answers are retried; everything else fails at once.
func (r *OCRIdentityReader) Read(ctx context.Context, image []byte) (model.IdentityDocument, error) {
	if len(image) == 0 {
		return model.IdentityDocument{}, apperr.Validation("document image is required")
	}
	if r.config.URL == "" {
		return model.IdentityDocument{}, apperr.Unavailable(nil, "OCR provider URL is not configured")
	}

	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return model.IdentityDocument{}, apperr.Unavailable(ctx.Err(), "OCR request cancelled")
			case <-time.After(backoff):
			}
		}

		doc, retry, err := r.readOnce(ctx, image)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retry {
			break
		}
		r.logger.DebugContext(ctx, "ocr attempt failed", "attempt", attempt+1, "error", err)
	}
	return model.IdentityDocument{}, lastErr
}

func (r *OCRIdentityReader) readOnce(ctx context.Context, image []byte) (model.IdentityDocument, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.URL, bytes.NewReader(image))
	if err != nil {
		return model.IdentityDocument{}, false, fmt.Errorf("build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return model.IdentityDocument{}, true, apperr.Unavailable(err, "OCR request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return model.IdentityDocument{}, true, apperr.Unavailable(nil, "OCR provider returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.IdentityDocument{}, false, apperr.Unavailable(nil, "OCR provider returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc model.IdentityDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return model.IdentityDocument{}, false, apperr.Unavailable(err, "decode OCR response")
	}
	if strings.TrimSpace(doc.IDNumber) == "" {
		return model.IdentityDocument{}, false, apperr.Unavailable(errors.New("missing id_number"), "OCR response incomplete")
	}
	// Providers never get to mark their own output as a fallback.
	doc.IsFallback = false
	return doc, false, nil
}
