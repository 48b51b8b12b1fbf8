package types

import "errors"

// Error kinds surfaced by the indexing pipeline. Components wrap these with
// context, so callers should match with errors.Is.
var (
	// Per-entry errors: the entry is skipped and the walk continues
	ErrUnreadableEntry = errors.New("unreadable entry")
	ErrBrokenLink      = errors.New("broken symbolic link")
	ErrLinkCycle       = errors.New("symbolic link cycle")

	// Store errors
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStoreIO             = errors.New("store I/O error")

	// Run errors
	ErrInvalidRoot        = errors.New("is not a directory or does not exist")
	ErrIndexingInProgress = errors.New("indexing already in progress")
)

// IsEntryError reports whether err is a per-entry error that a walk recovers
// from locally.
func IsEntryError(err error) bool {
	return errors.Is(err, ErrUnreadableEntry) ||
		errors.Is(err, ErrBrokenLink) ||
		errors.Is(err, ErrLinkCycle)
}
