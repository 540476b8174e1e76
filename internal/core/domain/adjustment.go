package domain

import "fmt"

type OutcomeStatus string

const (
	OutcomeApplied  OutcomeStatus = "applied"
	OutcomeRejected OutcomeStatus = "rejected"
	OutcomeFailed   OutcomeStatus = "failed"
)

type RejectReason string

const (
	ReasonNotFound             RejectReason = "not_found"
	ReasonInsufficientQuantity RejectReason = "insufficient_quantity"
	ReasonDuplicateRequest     RejectReason = "duplicate_request"
)

// AdjustmentRequest is one unit of work: add Delta (possibly negative)
// to the record's quantity. ID deduplicates retries of the same request.
type AdjustmentRequest struct {
	ID       string
	RecordID string
	Delta    int
}

// AdjustmentOutcome is the terminal result of one Apply call. Status
// selects which of the remaining fields are meaningful.
type AdjustmentOutcome struct {
	ActorID string
	Status  OutcomeStatus

	// applied
	NewQuantity int

	// rejected
	Reason          RejectReason
	CurrentQuantity int
	AttemptedDelta  int

	// failed
	Cause error
}

func Applied(actorID string, newQuantity int) AdjustmentOutcome {
	return AdjustmentOutcome{ActorID: actorID, Status: OutcomeApplied, NewQuantity: newQuantity}
}

func Rejected(actorID string, reason RejectReason, currentQuantity, attemptedDelta int) AdjustmentOutcome {
	return AdjustmentOutcome{
		ActorID:         actorID,
		Status:          OutcomeRejected,
		Reason:          reason,
		CurrentQuantity: currentQuantity,
		AttemptedDelta:  attemptedDelta,
	}
}

func Failed(actorID string, cause error) AdjustmentOutcome {
	return AdjustmentOutcome{ActorID: actorID, Status: OutcomeFailed, Cause: cause}
}

func (o AdjustmentOutcome) String() string {
	switch o.Status {
	case OutcomeApplied:
		return fmt.Sprintf("applied: new quantity %d", o.NewQuantity)
	case OutcomeRejected:
		return fmt.Sprintf("rejected (%s): quantity %d, delta %+d", o.Reason, o.CurrentQuantity, o.AttemptedDelta)
	default:
		return fmt.Sprintf("failed: %v", o.Cause)
	}
}
