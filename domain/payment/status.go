/*
Package payment is the payment-orchestration subdomain: the
PaymentOrder aggregate with its status state machine, fee accounting,
order numbering and retry-eligibility policy, plus the supporting
entities it hangs off (Organization, User, Customer, PaymentLink).

All fields that participate in invariants are mutated through
UpdateStatus / patches rather than direct assignment, so transition
legality and fee totals hold for every persisted row.
*/
package payment

import (
	"fmt"

	"paycore/domain/shared"
)

// Status is the payment order lifecycle state.
type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusProcessing      Status = "PROCESSING"
	StatusCompleted       Status = "COMPLETED"
	StatusFailed          Status = "FAILED"
	StatusRequiresAction  Status = "REQUIRES_ACTION"
	StatusCancelled       Status = "CANCELLED"
	StatusRefunded        Status = "REFUNDED"
)

// transitions is the legal forward-transition table. FAILED appears as a
// source because it is retryable; COMPLETED only moves to REFUNDED.
var transitions = map[Status][]Status{
	StatusCreated:         {StatusAwaitingPayment, StatusProcessing, StatusCancelled},
	StatusAwaitingPayment: {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusCompleted, StatusFailed, StatusRequiresAction, StatusCancelled},
	StatusRequiresAction:  {StatusProcessing, StatusCancelled},
	StatusFailed:          {StatusProcessing, StatusCancelled},
	StatusCompleted:       {StatusRefunded},
	StatusCancelled:       {},
	StatusRefunded:        {},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether forward processing has ended. FAILED is not
// terminal: the retry policy may push it back to PROCESSING.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// CanTransitionTo reports whether moving to target is legal. A
// same-status transition is always legal and treated as an idempotent
// re-entry by UpdateStatus.
func (s Status) CanTransitionTo(target Status) bool {
	if s == target {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrBusinessRule for an illegal move.
func ValidateTransition(from, to Status) error {
	if !to.IsValid() {
		return shared.NewBusinessRuleViolation("order_status",
			fmt.Sprintf("unknown payment order status %q", to))
	}
	if !from.CanTransitionTo(to) {
		return shared.NewBusinessRuleViolation("order_status_transition",
			fmt.Sprintf("payment order cannot move from %s to %s", from, to))
	}
	return nil
}
