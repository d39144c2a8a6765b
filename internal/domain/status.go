package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for a status change the engine does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// OperationStatus is the coarse state of the reconciliation engine.
type OperationStatus string

const (
	StatusIdle       OperationStatus = "Idle"
	StatusProcessing OperationStatus = "Processing"
	StatusError      OperationStatus = "Error"
)

var transitions = map[OperationStatus][]OperationStatus{
	StatusIdle:       {StatusProcessing},
	StatusError:      {StatusProcessing},
	StatusProcessing: {StatusIdle, StatusError},
}

// Transition validates a move to next and returns the new status.
func (s OperationStatus) Transition(next OperationStatus) (OperationStatus, error) {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return next, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
}
