package engine

import (
	"errors"
	"fmt"
)

// Structural errors: the caller asked for something the session cannot
// answer. These surface to the control surface as rejected operations.
var (
	ErrNoActiveSession   = errors.New("no active quiz session")
	ErrNoCurrentRound    = errors.New("no current round")
	ErrNoCurrentQuestion = errors.New("no current question")
)

// DomainError wraps any failure inside a quiz operation with the name of
// the operation that failed. The engine guarantees the phase was rolled
// back before the error is returned, so callers never observe a torn
// state change.
type DomainError struct {
	Op  string
	Err error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("quiz operation %s failed: %v", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}
