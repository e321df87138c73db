package queue

import "errors"

// Domain failures. All of these are expected, recoverable conditions that
// callers surface to the player; none of them is a fault. Compare with
// errors.Is.
var (
	// ErrDuplicateIdentity: the identity token already holds a live entry
	// in this session
	ErrDuplicateIdentity = errors.New("identity already has an entry in the queue")

	// ErrNotInQueue: no live entry matches the identity token
	ErrNotInQueue = errors.New("identity has no entry in the queue")

	// ErrNeedTwoPlayers: recording a result requires an occupied king and
	// challenger slot
	ErrNeedTwoPlayers = errors.New("need both a king and a challenger to record a result")

	// ErrNothingToUndo: no game record with a snapshot remains
	ErrNothingToUndo = errors.New("no result available to undo")

	// ErrUndoExpired: the last result is older than the undo window
	ErrUndoExpired = errors.New("undo window has expired")

	// ErrNotFound: no entry with the given identifier
	ErrNotFound = errors.New("entry not found")
)
