package model

import (
	"strings"
	"time"

	"github.com/jecoplus/lending/internal/domain/apperr"
)

// IdentityDocument is a best-effort OCR reading of an ID card.
type IdentityDocument struct {
	IDNumber  string `json:"id_number"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	RawText   string `json:"raw_text"`
	// IsFallback marks a placeholder produced because the OCR provider was
	// unavailable. It must never be mistaken for a real reading.
	IsFallback bool `json:"is_fallback"`
}

// IdentitySnapshot is the KYC record used to populate a loan contract.
type IdentitySnapshot struct {
	UserID     string
	CitizenID  string
	FirstName  string
	LastName   string
	BirthDate  time.Time
	IsFallback bool
	VerifiedAt time.Time
}

// Validate rejects snapshots that cannot populate a contract.
func (s IdentitySnapshot) Validate() error {
	switch {
	case strings.TrimSpace(s.CitizenID) == "":
		return apperr.Validation("identity snapshot for user %s has no citizen ID", s.UserID)
	case strings.TrimSpace(s.FirstName) == "" || strings.TrimSpace(s.LastName) == "":
		return apperr.Validation("identity snapshot for user %s has no name", s.UserID)
	}
	return nil
}

// FullName joins first and last name.
func (s IdentitySnapshot) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// birthDateLayouts are the formats OCR vendors return birth dates in.
var birthDateLayouts = []string{"2006-01-02", "02/01/2006", "02 Jan 2006"}

// SnapshotFromDocument promotes a scanned document to a KYC snapshot.
func SnapshotFromDocument(userID string, doc IdentityDocument, now time.Time) (IdentitySnapshot, error) {
	snap := IdentitySnapshot{
		UserID:     userID,
		CitizenID:  strings.TrimSpace(doc.IDNumber),
		FirstName:  strings.TrimSpace(doc.FirstName),
		LastName:   strings.TrimSpace(doc.LastName),
		IsFallback: doc.IsFallback,
		VerifiedAt: now,
	}
	if doc.BirthDate != "" {
		parsed := false
		for _, layout := range birthDateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(doc.BirthDate)); err == nil {
				snap.BirthDate = t
				parsed = true
				break
			}
		}
		if !parsed {
			return IdentitySnapshot{}, apperr.Validation("unrecognised birth date %q", doc.BirthDate)
		}
	}
	if err := snap.Validate(); err != nil {
		return IdentitySnapshot{}, err
	}
	return snap, nil
}
