package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/port"
)

// ConfirmIdentityUseCase promotes a cached scan to the user's KYC snapshot.
type ConfirmIdentityUseCase struct {
	sessions     port.SessionStore
	identityRepo port.IdentityRepository
	publisher    port.EventPublisher
	tx           port.Transactor
	logger       *slog.Logger
}

// NewConfirmIdentityUseCase wires dependencies.
func NewConfirmIdentityUseCase(
	sessions port.SessionStore,
	identityRepo port.IdentityRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	logger *slog.Logger,
) *ConfirmIdentityUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmIdentityUseCase{
		sessions:     sessions,
		identityRepo: identityRepo,
		publisher:    publisher,
		tx:           tx,
		logger:       logger,
	}
}

// Execute stores the snapshot and consumes the session entry.
func (uc *ConfirmIdentityUseCase) Execute(ctx context.Context, req dto.ConfirmIdentityRequest) (dto.IdentityResponse, error) {
	now := time.Now().UTC()

	if strings.TrimSpace(req.UserID) == "" {
		return dto.IdentityResponse{}, apperr.Validation("user ID is required")
	}

	// 1. Fetch the cached scan.
	key := scanSessionKey(req.SessionID)
	raw, err := uc.sessions.Get(ctx, key)
	if apperr.IsNotFound(err) {
		return dto.IdentityResponse{}, apperr.NotFound("no pending identity scan for session %s", req.SessionID)
	}
	if err != nil {
		return dto.IdentityResponse{}, fmt.Errorf("load scan: %w", err)
	}
	var doc model.IdentityDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return dto.IdentityResponse{}, fmt.Errorf("decode scan: %w", err)
	}

	// 2. Promote.
	snapshot, err := model.SnapshotFromDocument(req.UserID, doc, now)
	if err != nil {
		return dto.IdentityResponse{}, fmt.Errorf("build snapshot: %w", err)
	}

	// 3. Persist and publish.
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.identityRepo.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("save identity: %w", err)
		}
		if err := uc.publisher.Publish(ctx, event.NewIdentityConfirmed(req.UserID, snapshot.IsFallback, now)); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.IdentityResponse{}, err
	}

	// 4. The entry expires anyway; a failed delete is only logged.
	if err := uc.sessions.Delete(ctx, key); err != nil {
		uc.logger.WarnContext(ctx, "failed to delete identity scan session", "session_id", req.SessionID, "error", err)
	}

	return dto.IdentityResponse{
		UserID:     snapshot.UserID,
		CitizenID:  snapshot.CitizenID,
		FirstName:  snapshot.FirstName,
		LastName:   snapshot.LastName,
		BirthDate:  snapshot.BirthDate,
		IsFallback: snapshot.IsFallback,
		VerifiedAt: snapshot.VerifiedAt,
	}, nil
}
