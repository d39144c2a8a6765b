package usecase

import "errors"

var (
	// ErrCycleInProgress is returned when a cycle is requested while another one runs.
	ErrCycleInProgress = errors.New("reconciliation cycle already in progress")
	// ErrContentTooShort rejects generated content below the minimum length.
	ErrContentTooShort = errors.New("generated content too short")
	// ErrEmptyTitle rejects topics without a title.
	ErrEmptyTitle = errors.New("topic has no title")
	// ErrEmptyCategory rejects a category compilation without a label.
	ErrEmptyCategory = errors.New("category label is empty")
	// ErrNoLedger is returned by operations that need the run ledger when none is configured.
	ErrNoLedger = errors.New("run ledger is not configured")
)
