package engine

import "errors"

// Playback refusal reasons. The public façade reports these as boolean
// failures plus a log entry; none of them indicate a broken engine.
var (
	// ErrClipNotFound means the catalog has no entry for the requested id.
	ErrClipNotFound = errors.New("clip not found in catalog")

	// ErrCategoryMuted means the clip's category or the master channel is
	// muted. A policy no-op, not an error condition.
	ErrCategoryMuted = errors.New("category or master muted")

	// ErrDuplicateSuppressed means the same clip is already active in a
	// category that disallows duplicates.
	ErrDuplicateSuppressed = errors.New("duplicate clip suppressed")

	// ErrPoolExhausted means no voice could be acquired even after an
	// eviction attempt. Expected under load.
	ErrPoolExhausted = errors.New("voice pool exhausted")

	// ErrNotConfigured means the engine is missing its catalog or has been
	// closed; all requests fail fast.
	ErrNotConfigured = errors.New("engine not configured")
)
