package motion

import "errors"

// Domain errors for the motion package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, motion.ErrNotFound) {
//	    // handle unknown sequence
//	}
var (
	// ErrNotFound is returned when no document exists for a sequence ID.
	ErrNotFound = errors.New("sequence: not found")

	// ErrMalformedSequence is returned when a document is missing required
	// fields, has fields of the wrong shape, has non-contiguous frame indices,
	// or has a frame whose position count differs from the actor count.
	ErrMalformedSequence = errors.New("sequence: malformed")

	// ErrInvalidID is returned when a sequence ID is empty, too long, or
	// contains characters that could escape the store.
	ErrInvalidID = errors.New("sequence: invalid id")

	// ErrReadOnly is returned when writing to a store that does not accept writes.
	ErrReadOnly = errors.New("sequence: store is read-only")
)
