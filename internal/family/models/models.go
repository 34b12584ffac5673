package models

import (
	"time"
	"unicode/utf8"

	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/platform/strings"
)

// MaxNameLength bounds a display name in characters.
const MaxNameLength = 128

// Family is one roster entry. The ID is its identity; the name is for people.
type Family struct {
	ID        id.FamilyID
	Name      string
	NameKey   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFamily validates name and builds a family stamped at now.
func NewFamily(familyID id.FamilyID, name string, now time.Time) (*Family, error) {
	normalized, err := validateName(name)
	if err != nil {
		return nil, err
	}
	return &Family{
		ID:        familyID,
		Name:      normalized,
		NameKey:   strings.NameKey(normalized),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rename replaces the display name after the same validation as NewFamily.
func (f *Family) Rename(name string, now time.Time) error {
	normalized, err := validateName(name)
	if err != nil {
		return err
	}
	f.Name = normalized
	f.NameKey = strings.NameKey(normalized)
	f.UpdatedAt = now
	return nil
}

func validateName(name string) (string, error) {
	normalized := strings.NormalizeName(name)
	if normalized == "" {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "family name is required")
	}
	if utf8.RuneCountInString(normalized) > MaxNameLength {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "family name must be at most 128 characters")
	}
	return normalized, nil
}

type AddFamilyRequest struct {
	Name string `json:"name"`
}

type RenameFamilyRequest struct {
	Name string `json:"name"`
}

type FamilyResponse struct {
	ID        id.FamilyID `json:"id"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

type ListFamiliesResponse struct {
	Families []FamilyResponse `json:"families"`
}

func ToResponse(f *Family) FamilyResponse {
	return FamilyResponse{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt}
}

func ToListResponse(families []*Family) ListFamiliesResponse {
	out := make([]FamilyResponse, 0, len(families))
	for _, f := range families {
		out = append(out, ToResponse(f))
	}
	return ListFamiliesResponse{Families: out}
}
