package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/port"
)

// DefaultScanTTL is how long a scanned document waits for confirmation.
const DefaultScanTTL = 15 * time.Minute

// FallbackIdentityDocument is substituted when the OCR provider cannot be
// reached. IsFallback keeps it from being treated as a real reading.
func FallbackIdentityDocument() model.IdentityDocument {
	return model.IdentityDocument{
		IDNumber:   "0000000000000",
		FirstName:  "Unverified",
		LastName:   "Applicant",
		BirthDate:  "1990-01-01",
		IsFallback: true,
	}
}

func scanSessionKey(sessionID string) string { return "ocr:" + sessionID }

// ScanIdentityDocumentUseCase reads an ID card and caches the result under
// the KYC session until it is confirmed.
type ScanIdentityDocumentUseCase struct {
	reader   port.IdentityDocumentReader
	sessions port.SessionStore
	ttl      time.Duration
	logger   *slog.Logger
}

// NewScanIdentityDocumentUseCase wires dependencies. reader may be nil, in
// which case every scan yields the fallback document.
func NewScanIdentityDocumentUseCase(
	reader port.IdentityDocumentReader,
	sessions port.SessionStore,
	ttl time.Duration,
	logger *slog.Logger,
) *ScanIdentityDocumentUseCase {
	if ttl <= 0 {
		ttl = DefaultScanTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanIdentityDocumentUseCase{reader: reader, sessions: sessions, ttl: ttl, logger: logger}
}

// Execute never fails because of the OCR provider; it falls back and warns.
func (uc *ScanIdentityDocumentUseCase) Execute(
	ctx context.Context,
	req dto.ScanIdentityDocumentRequest,
) (dto.IdentityDocumentResponse, error) {
	now := time.Now().UTC()

	if strings.TrimSpace(req.SessionID) == "" {
		return dto.IdentityDocumentResponse{}, apperr.Validation("session ID is required")
	}
	if len(req.Image) == 0 {
		return dto.IdentityDocumentResponse{}, apperr.Validation("document image is required")
	}

	// 1. Read the document, substituting the fallback on any provider failure.
	doc, err := uc.read(ctx, req.Image)
	if err != nil {
		uc.logger.WarnContext(ctx, "identity document reader unavailable, using fallback",
			"session_id", req.SessionID,
			"error", err,
		)
		doc = FallbackIdentityDocument()
	}

	// 2. Cache under the session.
	payload, err := json.Marshal(doc)
	if err != nil {
		return dto.IdentityDocumentResponse{}, fmt.Errorf("encode document: %w", err)
	}
	if err := uc.sessions.Set(ctx, scanSessionKey(req.SessionID), payload, uc.ttl); err != nil {
		return dto.IdentityDocumentResponse{}, fmt.Errorf("cache scan: %w", err)
	}

	return dto.IdentityDocumentResponse{
		SessionID:  req.SessionID,
		IDNumber:   doc.IDNumber,
		FirstName:  doc.FirstName,
		LastName:   doc.LastName,
		BirthDate:  doc.BirthDate,
		IsFallback: doc.IsFallback,
		ExpiresAt:  now.Add(uc.ttl),
	}, nil
}

func (uc *ScanIdentityDocumentUseCase) read(ctx context.Context, image []byte) (model.IdentityDocument, error) {
	if uc.reader == nil {
		return model.IdentityDocument{}, errors.New("no identity document reader configured")
	}
	return uc.reader.Read(ctx, image)
}
