package payment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/domain/shared"
)

func changedFields(changes []shared.FieldChange) []string {
	fields := make([]string, len(changes))
	for i, c := range changes {
		fields[i] = c.Field
	}
	return fields
}

func TestOrderPatchRecordsOnlyActualChanges(t *testing.T) {
	order, err := NewOrderFromLink(testLink(), NewOrderInput{})
	require.NoError(t, err)

	assert.Empty(t, OrderPatch{}.Apply(order), "empty patch changes nothing")

	sameStatus := order.Status
	sameKYC := order.KYCStatus
	changes := OrderPatch{Status: &sameStatus, KYCStatus: &sameKYC}.Apply(order)
	assert.Empty(t, changes, "equal-valued slots produce no change entries")

	processing := StatusProcessing
	retries := 1
	changes = OrderPatch{Status: &processing, RetryCount: &retries}.Apply(order)
	assert.ElementsMatch(t, []string{ColStatus, ColRetryCount}, changedFields(changes))
	assert.Equal(t, StatusProcessing, order.Status)
	assert.Equal(t, 1, order.RetryCount)

	for _, c := range changes {
		if c.Field == ColStatus {
			assert.Equal(t, string(StatusCreated), c.Old)
			assert.Equal(t, string(StatusProcessing), c.New)
		}
	}
}

func TestOrderPatchKeepsFeeTotalConsistent(t *testing.T) {
	order, err := NewOrderFromLink(testLink(), NewOrderInput{
		PlatformFee: decimal.NewFromFloat(1.00),
		ProviderFee: decimal.NewFromFloat(0.50),
		NetworkFee:  decimal.NewFromFloat(0.25),
	})
	require.NoError(t, err)
	require.True(t, order.TotalFee.Equal(decimal.NewFromFloat(1.75)))

	newProvider := decimal.NewFromFloat(0.90)
	changes := OrderPatch{ProviderFee: &newProvider}.Apply(order)

	assert.ElementsMatch(t, []string{ColProviderFee, ColTotalFee}, changedFields(changes))
	assert.True(t, order.TotalFee.Equal(decimal.NewFromFloat(2.15)))
	assert.True(t, order.FeesConsistent())
}

func TestOrderPatchTimestampsAreWriteOnce(t *testing.T) {
	order, err := NewOrderFromLink(testLink(), NewOrderInput{})
	require.NoError(t, err)

	first := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	changes := OrderPatch{StartedAt: &first}.Apply(order)
	require.Len(t, changes, 1)
	require.NotNil(t, order.StartedAt)
	assert.Equal(t, first, *order.StartedAt)

	second := first.Add(time.Hour)
	changes = OrderPatch{StartedAt: &second}.Apply(order)
	assert.Empty(t, changes, "a second write is ignored")
	assert.Equal(t, first, *order.StartedAt)

	done := first.Add(2 * time.Hour)
	changes = OrderPatch{CompletedAt: &done}.Apply(order)
	require.Len(t, changes, 1)
	changes = OrderPatch{CompletedAt: &second}.Apply(order)
	assert.Empty(t, changes)
	assert.Equal(t, done, *order.CompletedAt)
}

func TestOrderPatchNullableSlots(t *testing.T) {
	order, err := NewOrderFromLink(testLink(), NewOrderInput{})
	require.NoError(t, err)

	code := "card_declined"
	reason := "issuer declined the card"
	changes := OrderPatch{FailureCode: &code, FailureReason: &reason}.Apply(order)
	assert.ElementsMatch(t, []string{ColFailureCode, ColFailureReason}, changedFields(changes))

	for _, c := range changes {
		assert.Nil(t, c.Old, "previous value of an unset nullable column is nil")
	}

	// Re-applying the same values is a no-op.
	assert.Empty(t, OrderPatch{FailureCode: &code, FailureReason: &reason}.Apply(order))
}

func TestCustomerAndLinkPatches(t *testing.T) {
	customer := &Customer{ID: "cust-1", OrganizationID: "org-1", Email: "a@example.com", Name: "Ada"}

	newEmail := "ada@example.com"
	changes := CustomerPatch{Email: &newEmail}.Apply(customer)
	require.Len(t, changes, 1)
	assert.Equal(t, "email", changes[0].Field)
	assert.Equal(t, "ada@example.com", customer.Email)

	link := testLink()
	inactive := false
	amount := decimal.NewFromInt(75)
	changes = LinkPatch{Active: &inactive, Amount: &amount}.Apply(link)
	assert.ElementsMatch(t, []string{"active", "amount"}, changedFields(changes))
	assert.False(t, link.Active)
	assert.True(t, link.Amount.Equal(amount))
}
