package domain

import "errors"

// #region protocol-errors

// Protocol faults in the event log. These abort replay of the affected
// session; silently patching the sequence would break the determinism
// guarantee the aggregate exists to provide.
var (
	// ErrSequenceGap reports an envelope whose Seq skips ahead of the
	// aggregate's watermark.
	ErrSequenceGap = errors.New("sequence gap")

	// ErrDuplicateSeq reports an envelope whose Seq does not advance
	// the aggregate's watermark (duplicate or regression).
	ErrDuplicateSeq = errors.New("duplicate or regressed sequence")

	// ErrTimestampRegression reports an envelope timestamped earlier
	// than its predecessor.
	ErrTimestampRegression = errors.New("timestamp regression")

	// ErrSessionMismatch reports an envelope from a different session
	// applied to an already-bound aggregate.
	ErrSessionMismatch = errors.New("session mismatch")

	// ErrUnknownEvent reports an event kind outside the closed union.
	ErrUnknownEvent = errors.New("unknown event kind")
)

// #endregion protocol-errors
