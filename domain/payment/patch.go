package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"paycore/domain/shared"
)

// OrderPatch is the enumerable update surface of a PaymentOrder. Every
// mutable field gets one nullable slot; nil means "leave unchanged".
// Apply records the fields that actually changed value, which is what
// the event layer diffs against, and keeps TotalFee consistent whenever
// any fee component moves.
type OrderPatch struct {
	Status          *Status
	CustomerID      *string
	SettledAmount   *decimal.Decimal
	SettledCurrency *string
	ExchangeRate    *decimal.Decimal
	PlatformFee     *decimal.Decimal
	ProviderFee     *decimal.Decimal
	NetworkFee      *decimal.Decimal
	RiskScore       *float64
	KYCStatus       *string
	FailureReason   *string
	FailureCode     *string
	RetryCount      *int
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Apply writes the non-nil slots onto the order and returns the list of
// fields whose value actually changed. An untouched or equal-valued slot
// produces no change entry.
func (p OrderPatch) Apply(o *PaymentOrder) []shared.FieldChange {
	var changes []shared.FieldChange

	record := func(field string, old, new any) {
		changes = append(changes, shared.FieldChange{Field: field, Old: old, New: new})
	}

	if p.Status != nil && *p.Status != o.Status {
		record(ColStatus, string(o.Status), string(*p.Status))
		o.Status = *p.Status
	}
	if p.CustomerID != nil && !strPtrEqual(o.CustomerID, p.CustomerID) {
		record(ColCustomerID, strPtrValue(o.CustomerID), *p.CustomerID)
		o.CustomerID = p.CustomerID
	}
	if p.SettledAmount != nil && !decPtrEqual(o.SettledAmount, p.SettledAmount) {
		record(ColSettledAmount, decPtrValue(o.SettledAmount), *p.SettledAmount)
		o.SettledAmount = p.SettledAmount
	}
	if p.SettledCurrency != nil && !strPtrEqual(o.SettledCurrency, p.SettledCurrency) {
		record(ColSettledCcy, strPtrValue(o.SettledCurrency), *p.SettledCurrency)
		o.SettledCurrency = p.SettledCurrency
	}
	if p.ExchangeRate != nil && !decPtrEqual(o.ExchangeRate, p.ExchangeRate) {
		record(ColExchangeRate, decPtrValue(o.ExchangeRate), *p.ExchangeRate)
		o.ExchangeRate = p.ExchangeRate
	}

	feeChanged := false
	if p.PlatformFee != nil && !o.PlatformFee.Equal(*p.PlatformFee) {
		record(ColPlatformFee, o.PlatformFee, *p.PlatformFee)
		o.PlatformFee = *p.PlatformFee
		feeChanged = true
	}
	if p.ProviderFee != nil && !o.ProviderFee.Equal(*p.ProviderFee) {
		record(ColProviderFee, o.ProviderFee, *p.ProviderFee)
		o.ProviderFee = *p.ProviderFee
		feeChanged = true
	}
	if p.NetworkFee != nil && !o.NetworkFee.Equal(*p.NetworkFee) {
		record(ColNetworkFee, o.NetworkFee, *p.NetworkFee)
		o.NetworkFee = *p.NetworkFee
		feeChanged = true
	}
	if feeChanged {
		newTotal := o.feeSum()
		if !o.TotalFee.Equal(newTotal) {
			record(ColTotalFee, o.TotalFee, newTotal)
			o.TotalFee = newTotal
		}
	}

	if p.RiskScore != nil && (o.RiskScore == nil || *o.RiskScore != *p.RiskScore) {
		record(ColRiskScore, floatPtrValue(o.RiskScore), *p.RiskScore)
		o.RiskScore = p.RiskScore
	}
	if p.KYCStatus != nil && o.KYCStatus != *p.KYCStatus {
		record(ColKYCStatus, o.KYCStatus, *p.KYCStatus)
		o.KYCStatus = *p.KYCStatus
	}
	if p.FailureReason != nil && !strPtrEqual(o.FailureReason, p.FailureReason) {
		record(ColFailureReason, strPtrValue(o.FailureReason), *p.FailureReason)
		o.FailureReason = p.FailureReason
	}
	if p.FailureCode != nil && !strPtrEqual(o.FailureCode, p.FailureCode) {
		record(ColFailureCode, strPtrValue(o.FailureCode), *p.FailureCode)
		o.FailureCode = p.FailureCode
	}
	if p.RetryCount != nil && o.RetryCount != *p.RetryCount {
		record(ColRetryCount, o.RetryCount, *p.RetryCount)
		o.RetryCount = *p.RetryCount
	}
	if p.StartedAt != nil && o.StartedAt == nil {
		// StartedAt is write-once: an existing value is never overwritten.
		record(ColStartedAt, nil, *p.StartedAt)
		o.StartedAt = p.StartedAt
	}
	if p.CompletedAt != nil && o.CompletedAt == nil {
		record(ColCompletedAt, nil, *p.CompletedAt)
		o.CompletedAt = p.CompletedAt
	}

	return changes
}

// CustomerPatch is the enumerable update surface of a Customer.
type CustomerPatch struct {
	Email *string
	Name  *string
}

func (p CustomerPatch) Apply(c *Customer) []shared.FieldChange {
	var changes []shared.FieldChange
	if p.Email != nil && c.Email != *p.Email {
		changes = append(changes, shared.FieldChange{Field: "email", Old: c.Email, New: *p.Email})
		c.Email = *p.Email
	}
	if p.Name != nil && c.Name != *p.Name {
		changes = append(changes, shared.FieldChange{Field: "name", Old: c.Name, New: *p.Name})
		c.Name = *p.Name
	}
	return changes
}

// LinkPatch is the enumerable update surface of a PaymentLink.
type LinkPatch struct {
	Title    *string
	Amount   *decimal.Decimal
	Currency *string
	Active   *bool
}

func (p LinkPatch) Apply(l *PaymentLink) []shared.FieldChange {
	var changes []shared.FieldChange
	if p.Title != nil && l.Title != *p.Title {
		changes = append(changes, shared.FieldChange{Field: "title", Old: l.Title, New: *p.Title})
		l.Title = *p.Title
	}
	if p.Amount != nil && !l.Amount.Equal(*p.Amount) {
		changes = append(changes, shared.FieldChange{Field: "amount", Old: l.Amount, New: *p.Amount})
		l.Amount = *p.Amount
	}
	if p.Currency != nil && l.Currency != *p.Currency {
		changes = append(changes, shared.FieldChange{Field: "currency", Old: l.Currency, New: *p.Currency})
		l.Currency = *p.Currency
	}
	if p.Active != nil && l.Active != *p.Active {
		changes = append(changes, shared.FieldChange{Field: "active", Old: l.Active, New: *p.Active})
		l.Active = *p.Active
	}
	return changes
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func decPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func decPtrValue(p *decimal.Decimal) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtrValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
