package pairing

import "errors"

var (
	// ErrInvalidGroupSize indicates a group size below one.
	ErrInvalidGroupSize = errors.New("pairing: group size must be at least 1")
	// ErrDuplicateParticipant indicates the same id appears twice in a roster.
	ErrDuplicateParticipant = errors.New("pairing: roster contains a duplicate participant")
)
