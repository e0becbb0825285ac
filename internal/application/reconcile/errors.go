package reconcile

import "errors"

var (
	// ErrValidation is returned for malformed requests such as an unknown data type
	ErrValidation = errors.New("validation error")

	// ErrDuplicatePayload is returned when the gate has seen the same payload recently
	ErrDuplicatePayload = errors.New("duplicate payload")

	// ErrNoExtractionResult is returned when neither rules nor AI produced a draft
	ErrNoExtractionResult = errors.New("no extraction result")

	// ErrWorkerClosed is returned by Submit after Close
	ErrWorkerClosed = errors.New("reconcile worker is closed")
)

// MergedRuleName is the rule name given to a parent bill after a merge
const MergedRuleName = "多账单合并"
