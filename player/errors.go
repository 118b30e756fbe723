package player

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled matches any CancelledError.
	ErrCancelled = errors.New("player: playback cancelled")
	// ErrStarted is returned when Play is called on a player that already ran.
	ErrStarted = errors.New("player: already started")
)

// CancelledError reports cooperative cancellation. It is not a failure.
type CancelledError struct {
	Played int   // events dispatched before the stop
	Cause  error // context error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("player: playback cancelled after %d event(s): %v", e.Played, e.Cause)
}

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

func (e *CancelledError) Unwrap() error { return e.Cause }

// DispatchError wraps a sink failure. The sink error is kept as is.
type DispatchError struct {
	Index  int // event that failed
	Played int // events dispatched before it
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("player: dispatch of event %d failed after %d played: %v", e.Index, e.Played, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
