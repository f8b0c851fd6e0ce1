package port

import (
	"context"
	"time"

	"github.com/jecoplus/lending/internal/domain/model"
)

// DocumentParser turns a document (a PDF bank statement) into plain text.
// Failures are reported as apperr.UpstreamParse.
type DocumentParser interface {
	Parse(ctx context.Context, document []byte) (string, error)
}

// IdentityDocumentReader reads an ID card image.
type IdentityDocumentReader interface {
	Read(ctx context.Context, image []byte) (model.IdentityDocument, error)
}

// SessionStore is a TTL-aware key/value store for short-lived session state.
// Get returns apperr.NotFound for missing or expired keys.
type SessionStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ContractNumberGenerator issues partner contract numbers.
type ContractNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}
