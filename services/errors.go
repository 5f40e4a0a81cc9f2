package services

import (
	"errors"
	"fmt"
)

// Precondition and consistency errors returned by the core services.
// Handlers map these to HTTP statuses; none of them leave partial state
// behind because every multi-row effect runs inside a single transaction.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrHuntNotFound       = errors.New("treasure hunt not found")
	ErrHuntNotPublished   = errors.New("treasure hunt is not published")
	ErrAlreadyJoined      = errors.New("already joined this treasure hunt")
	ErrNotJoined          = errors.New("must join this treasure hunt first")
	ErrInsufficientCrowns = errors.New("insufficient crowns")

	ErrStepNotFound         = errors.New("step not found")
	ErrStepAlreadyCompleted = errors.New("step already completed")
	ErrHuntAlreadyCompleted = errors.New("treasure hunt already completed")
	ErrDuplicateStepOrder   = errors.New("step order already used in this hunt")
	ErrNotPlanner           = errors.New("only the planner can modify this hunt")

	ErrArtefactNotFound    = errors.New("artefact not found")
	ErrAlreadyListed       = errors.New("artefact is already listed")
	ErrNotTradeable        = errors.New("this artefact cannot be traded")
	ErrListingNotAvailable = errors.New("marketplace listing not found or no longer available")
	ErrSelfPurchase        = errors.New("cannot purchase your own listing")
	ErrNotSeller           = errors.New("only the seller can cancel this listing")
	ErrInvalidPrice        = errors.New("price must be at least 1 crown")
)

// PriorStepsIncompleteError rejects an out-of-order completion and names the
// first prior step the user still has to finish.
type PriorStepsIncompleteError struct {
	RequiredStepID string
}

func (e *PriorStepsIncompleteError) Error() string {
	return fmt.Sprintf("previous steps must be completed first (next required step: %s)", e.RequiredStepID)
}

// ProofRequiredError means the submitted payload is missing the field the
// step's validation type needs. Distinct from a failed validation: nothing
// was actually checked.
type ProofRequiredError struct {
	Field string
}

func (e *ProofRequiredError) Error() string {
	return fmt.Sprintf("%s required for this step", e.Field)
}

// ValidationFailedError carries the human-readable reason a proof was judged
// invalid (wrong answer, too far from target, bad code).
type ValidationFailedError struct {
	Reason string
}

func (e *ValidationFailedError) Error() string {
	return e.Reason
}
