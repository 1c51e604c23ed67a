// Package domain holds shared domain primitives: typed identifiers and
// small value types used across verticals.
//
// IDs are distinct types over uuid.UUID so the compiler rejects passing an
// owner ID where a submission ID is expected. Construct them via the Parse
// functions at trust boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "deedblock/pkg/domain-errors"
)

// OwnerID identifies the authenticated owner of a registration draft.
// One draft exists per OwnerID at a time.
type OwnerID uuid.UUID

// SubmissionID identifies a finalized registration record.
type SubmissionID uuid.UUID

func (id OwnerID) String() string      { return uuid.UUID(id).String() }
func (id SubmissionID) String() string { return uuid.UUID(id).String() }

func (id OwnerID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SubmissionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the canonical UUID string form in JSON and database
// snapshots instead of the raw byte array.
func (id OwnerID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id SubmissionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *OwnerID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = OwnerID(u)
	return nil
}

func (id *SubmissionID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = SubmissionID(u)
	return nil
}

// ParseOwnerID validates external input into an OwnerID.
// Invariant: IDs must be valid, non-empty, non-nil UUIDs.
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return OwnerID{}, err
	}
	return OwnerID(u), nil
}

// ParseSubmissionID validates external input into a SubmissionID.
func ParseSubmissionID(s string) (SubmissionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SubmissionID{}, err
	}
	return SubmissionID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}
