package domain

import (
	"database/sql/driver"

	"github.com/google/uuid"

	dErrors "aroundtable/pkg/domain-errors"
)

// FamilyID identifies a roster entry. It is the only identity the pairing
// engine uses; display names can change or collide.
type FamilyID uuid.UUID

// SessionID identifies a saved grouping session.
type SessionID uuid.UUID

// DraftID identifies an unsaved, editable grouping.
type DraftID uuid.UUID

func NewFamilyID() FamilyID   { return FamilyID(uuid.New()) }
func NewSessionID() SessionID { return SessionID(uuid.New()) }
func NewDraftID() DraftID     { return DraftID(uuid.New()) }

// ParseFamilyID parses external input into a FamilyID.
//
// Errors: CodeInvalidInput when the value is empty, malformed or the nil UUID.
func ParseFamilyID(s string) (FamilyID, error) {
	u, err := parseUUID(s, "family ID")
	return FamilyID(u), err
}

// ParseSessionID parses external input into a SessionID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session ID")
	return SessionID(u), err
}

// ParseDraftID parses external input into a DraftID.
func ParseDraftID(s string) (DraftID, error) {
	u, err := parseUUID(s, "draft ID")
	return DraftID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func (id FamilyID) String() string { return uuid.UUID(id).String() }
func (id FamilyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id FamilyID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *FamilyID) UnmarshalText(b []byte) error {
	parsed, err := ParseFamilyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id FamilyID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *FamilyID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id SessionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id SessionID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *SessionID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

func (id DraftID) String() string { return uuid.UUID(id).String() }
func (id DraftID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id DraftID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *DraftID) UnmarshalText(b []byte) error {
	parsed, err := ParseDraftID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
