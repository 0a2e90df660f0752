package shared

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func sampleFields() FieldValues {
	return FieldValues{
		"status":       "FAILED",
		"retry_count":  2,
		"amount":       decimal.NewFromFloat(99.50),
		"currency":     "USD",
		"order_number": "20260115-000042",
		"failure_code": "card_declined",
		"customer_id":  nil,
		"updated_at":   time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestComparisonOperators(t *testing.T) {
	fields := sampleFields()

	cases := []struct {
		name string
		spec Specification
		want bool
	}{
		{"equal match", Equal("status", "FAILED"), true},
		{"equal mismatch", Equal("status", "COMPLETED"), false},
		{"not equal", NotEqual("status", "COMPLETED"), true},
		{"greater than", GreaterThan("retry_count", 1), true},
		{"greater than boundary", GreaterThan("retry_count", 2), false},
		{"greater or equal boundary", GreaterOrEqual("retry_count", 2), true},
		{"less than", LessThan("retry_count", 3), true},
		{"less or equal boundary", LessOrEqual("retry_count", 2), true},
		{"between inclusive", Between("retry_count", 2, 5), true},
		{"between outside", Between("retry_count", 3, 5), false},
		{"in match", In("status", "FAILED", "CANCELLED"), true},
		{"in miss", In("status", "CREATED", "COMPLETED"), false},
		{"in empty", In("status"), false},
		{"like prefix", Like("order_number", "20260115-%"), true},
		{"like single wildcard", Like("currency", "US_"), true},
		{"like miss", Like("order_number", "20260116-%"), false},
		{"is null on null", IsNull("customer_id"), true},
		{"is null on value", IsNull("status"), false},
		{"is not null", IsNotNull("status"), true},
		{"missing field treated as null", IsNull("no_such_column"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.spec.IsSatisfiedBy(fields))
		})
	}
}

func TestNullNeverSatisfiesValueComparison(t *testing.T) {
	fields := FieldValues{"failure_code": nil}

	assert.False(t, Equal("failure_code", "card_declined").IsSatisfiedBy(fields))
	assert.False(t, NotEqual("failure_code", "card_declined").IsSatisfiedBy(fields))
	assert.False(t, In("failure_code", "card_declined", "expired").IsSatisfiedBy(fields))
	assert.True(t, Not(In("failure_code", "card_declined")).IsSatisfiedBy(fields),
		"NOT over a null comparison inverts the false, unlike SQL three-valued logic")
}

func TestDecimalAndTimeComparisons(t *testing.T) {
	fields := sampleFields()

	assert.True(t, GreaterThan("amount", decimal.NewFromInt(50)).IsSatisfiedBy(fields))
	assert.True(t, Equal("amount", decimal.NewFromFloat(99.50)).IsSatisfiedBy(fields))
	assert.False(t, LessThan("amount", decimal.NewFromInt(50)).IsSatisfiedBy(fields))

	cutoff := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	assert.True(t, LessOrEqual("updated_at", cutoff).IsSatisfiedBy(fields))
	assert.False(t, GreaterThan("updated_at", cutoff).IsSatisfiedBy(fields))
}

func TestNullableColumnComparesByValue(t *testing.T) {
	code := "card_declined"
	fields := FieldValues{"failure_code": &code}

	assert.True(t, Equal("failure_code", "card_declined").IsSatisfiedBy(fields))
	assert.False(t, IsNull("failure_code").IsSatisfiedBy(fields))

	var nilCode *string
	fields["failure_code"] = nilCode
	assert.True(t, IsNull("failure_code").IsSatisfiedBy(fields))
	assert.False(t, Equal("failure_code", "card_declined").IsSatisfiedBy(fields))
}

func TestCompositeIdentities(t *testing.T) {
	fields := sampleFields()

	assert.True(t, And().IsSatisfiedBy(fields), "empty And is vacuously true")
	assert.False(t, Or().IsSatisfiedBy(fields), "empty Or is vacuously false")

	assert.True(t, And(Equal("status", "FAILED"), LessThan("retry_count", 3)).IsSatisfiedBy(fields))
	assert.False(t, And(Equal("status", "FAILED"), Equal("currency", "EUR")).IsSatisfiedBy(fields))

	assert.True(t, Or(Equal("currency", "EUR"), Equal("currency", "USD")).IsSatisfiedBy(fields))
	assert.False(t, Or(Equal("currency", "EUR"), Equal("currency", "GBP")).IsSatisfiedBy(fields))

	assert.True(t, Not(Equal("status", "COMPLETED")).IsSatisfiedBy(fields))
	assert.False(t, Not(Not(Equal("status", "COMPLETED"))).IsSatisfiedBy(fields))
}

func TestCompositeNesting(t *testing.T) {
	fields := sampleFields()

	// Retry eligibility shape: failed, under budget, code not denied.
	spec := And(
		Equal("status", "FAILED"),
		LessThan("retry_count", 3),
		Or(
			IsNull("failure_code"),
			Not(In("failure_code", "fraud_detected", "sanctioned_entity")),
		),
	)
	assert.True(t, spec.IsSatisfiedBy(fields))

	fields["failure_code"] = "fraud_detected"
	assert.False(t, spec.IsSatisfiedBy(fields))

	fields["failure_code"] = nil
	assert.True(t, spec.IsSatisfiedBy(fields), "null failure code stays eligible via the IsNull arm")
}
