package payment

import (
	"time"

	"paycore/domain/shared"
)

// Failure codes that are never retried, regardless of retry budget.
const (
	FailureCodeFraud          = "fraud_detected"
	FailureCodeSanctioned     = "sanctioned_entity"
	FailureCodeInvalidAccount = "invalid_account"
)

// RetryPolicy selects FAILED orders eligible for another attempt.
type RetryPolicy struct {
	// MaxRetries caps the number of attempts already consumed.
	MaxRetries int

	// RetryAfter is the cool-down window since the last update.
	RetryAfter time.Duration

	// DenyCodes lists failure codes classified as permanent.
	DenyCodes []string
}

// DefaultRetryPolicy matches the caller-configurable defaults:
// three attempts, thirty minute cool-down, fixed permanent-failure list.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		RetryAfter: 30 * time.Minute,
		DenyCodes: []string{
			FailureCodeFraud,
			FailureCodeSanctioned,
			FailureCodeInvalidAccount,
		},
	}
}

// EligibilitySpec builds the retry-selection predicate as of now:
// status FAILED, retry budget left, cool-down elapsed, failure code not
// classified permanent. A NULL failure code is treated as retryable,
// hence the explicit IsNull arm (SQL NOT IN would silently drop NULLs).
func (p RetryPolicy) EligibilitySpec(now time.Time) shared.Specification {
	deny := make([]any, len(p.DenyCodes))
	for i, code := range p.DenyCodes {
		deny[i] = code
	}
	return shared.And(
		shared.Equal(ColStatus, string(StatusFailed)),
		shared.LessThan(ColRetryCount, p.MaxRetries),
		shared.LessOrEqual(ColUpdatedAt, now.Add(-p.RetryAfter)),
		shared.Or(
			shared.IsNull(ColFailureCode),
			shared.Not(shared.In(ColFailureCode, deny...)),
		),
	)
}

// IsPermanentFailure reports whether a failure code is in the deny list.
func (p RetryPolicy) IsPermanentFailure(code string) bool {
	for _, deny := range p.DenyCodes {
		if deny == code {
			return true
		}
	}
	return false
}
