package ledger

import "errors"

// Precondition violations
var (
	ErrAlreadyRunning   = errors.New("streamer is already running")
	ErrNoLiveSource     = errors.New("no live source configured")
	ErrNoArchiveSource  = errors.New("no archive source configured")
	ErrInvalidRange     = errors.New("invalid ledger range")
	ErrInvalidIntervals = errors.New("paging interval exceeds ledger wait interval")
)

// Source-health violations
var (
	ErrUnhealthySource  = errors.New("live source is not healthy")
	ErrLedgerOutOfRange = errors.New("ledger outside the live source window")
)

// IsPrecondition reports whether err is a caller mistake that no retry can fix
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrAlreadyRunning) ||
		errors.Is(err, ErrNoLiveSource) ||
		errors.Is(err, ErrNoArchiveSource) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidIntervals)
}

// IsSourceHealth reports whether err came from the live source window checks
func IsSourceHealth(err error) bool {
	return errors.Is(err, ErrUnhealthySource) || errors.Is(err, ErrLedgerOutOfRange)
}
