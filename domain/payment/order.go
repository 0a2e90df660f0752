package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paycore/domain/shared"
)

// KYC verification states carried on the order for risk screening.
const (
	KYCStatusPending  = "PENDING"
	KYCStatusVerified = "VERIFIED"
	KYCStatusRejected = "REJECTED"
)

// Column names for the payment_orders table. Specifications and patches
// reference these constants instead of raw strings.
const (
	ColID              = "id"
	ColOrganizationID  = "organization_id"
	ColPaymentLinkID   = "payment_link_id"
	ColCustomerID      = "customer_id"
	ColOrderNumber     = "order_number"
	ColStatus          = "status"
	ColRequestedAmount = "requested_amount"
	ColRequestedCcy    = "requested_currency"
	ColSettledAmount   = "settled_amount"
	ColSettledCcy      = "settled_currency"
	ColExchangeRate    = "exchange_rate"
	ColPlatformFee     = "platform_fee"
	ColProviderFee     = "provider_fee"
	ColNetworkFee      = "network_fee"
	ColTotalFee        = "total_fee"
	ColRiskScore       = "risk_score"
	ColKYCStatus       = "kyc_status"
	ColFailureReason   = "failure_reason"
	ColFailureCode     = "failure_code"
	ColRetryCount      = "retry_count"
	ColCreatedAt       = "created_at"
	ColStartedAt       = "started_at"
	ColCompletedAt     = "completed_at"
	ColUpdatedAt       = "updated_at"
)

// PaymentOrder is the tenant-scoped aggregate at the centre of the
// system. Orders are never hard-deleted; terminal rows are retained for
// audit and event history.
//
// Invariants maintained here and by OrderPatch:
//   - TotalFee always equals PlatformFee + ProviderFee + NetworkFee.
//   - SettledAmount/SettledCurrency are set iff status is COMPLETED.
//   - StartedAt is set exactly once, on first entry into PROCESSING.
//   - CompletedAt is set once, on entry into COMPLETED or FAILED.
//   - OrderNumber is unique per (organization, UTC day).
type PaymentOrder struct {
	ID                string           `gorm:"primaryKey;size:36"`
	OrganizationID    string           `gorm:"size:36;index;not null;uniqueIndex:uniq_org_order_number"`
	PaymentLinkID     string           `gorm:"size:36;index;not null"`
	CustomerID        *string          `gorm:"size:36;index"`
	OrderNumber       string           `gorm:"size:20;not null;uniqueIndex:uniq_org_order_number"`
	Status            Status           `gorm:"size:20;not null;index"`
	RequestedAmount   decimal.Decimal  `gorm:"type:decimal(20,8);not null"`
	RequestedCurrency string           `gorm:"size:8;not null"`
	SettledAmount     *decimal.Decimal `gorm:"type:decimal(20,8)"`
	SettledCurrency   *string          `gorm:"size:8"`
	ExchangeRate      *decimal.Decimal `gorm:"type:decimal(20,8)"`
	PlatformFee       decimal.Decimal  `gorm:"type:decimal(20,8);not null"`
	ProviderFee       decimal.Decimal  `gorm:"type:decimal(20,8);not null"`
	NetworkFee        decimal.Decimal  `gorm:"type:decimal(20,8);not null"`
	TotalFee          decimal.Decimal  `gorm:"type:decimal(20,8);not null"`
	RiskScore         *float64         `gorm:""`
	KYCStatus         string           `gorm:"size:16;not null;default:PENDING"`
	FailureReason     *string          `gorm:"size:512"`
	FailureCode       *string          `gorm:"size:64;index"`
	RetryCount        int              `gorm:"not null;default:0"`
	CreatedAt         time.Time        `gorm:"autoCreateTime;index"`
	StartedAt         *time.Time       `gorm:""`
	CompletedAt       *time.Time       `gorm:""`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime;index"`
}

func (PaymentOrder) TableName() string { return "payment_orders" }

func (o PaymentOrder) GetID() string { return o.ID }

func (o PaymentOrder) EntityName() string { return "payment_order" }

func (o PaymentOrder) GetOrganizationID() string { return o.OrganizationID }

// FieldValues exposes column values for in-memory specification
// evaluation. Nullable columns map to nil when unset.
func (o PaymentOrder) FieldValues() shared.FieldValues {
	return shared.FieldValues{
		ColID:              o.ID,
		ColOrganizationID:  o.OrganizationID,
		ColPaymentLinkID:   o.PaymentLinkID,
		ColCustomerID:      o.CustomerID,
		ColOrderNumber:     o.OrderNumber,
		ColStatus:          string(o.Status),
		ColRequestedAmount: o.RequestedAmount,
		ColRequestedCcy:    o.RequestedCurrency,
		ColSettledAmount:   o.SettledAmount,
		ColSettledCcy:      o.SettledCurrency,
		ColExchangeRate:    o.ExchangeRate,
		ColPlatformFee:     o.PlatformFee,
		ColProviderFee:     o.ProviderFee,
		ColNetworkFee:      o.NetworkFee,
		ColTotalFee:        o.TotalFee,
		ColRiskScore:       o.RiskScore,
		ColKYCStatus:       o.KYCStatus,
		ColFailureReason:   o.FailureReason,
		ColFailureCode:     o.FailureCode,
		ColRetryCount:      o.RetryCount,
		ColCreatedAt:       o.CreatedAt,
		ColStartedAt:       o.StartedAt,
		ColCompletedAt:     o.CompletedAt,
		ColUpdatedAt:       o.UpdatedAt,
	}
}

// NewOrderInput carries the caller-supplied attributes for a new order.
// Amount and currency fall back to the parent payment link when zero.
type NewOrderInput struct {
	CustomerID      *string
	RequestedAmount decimal.Decimal
	Currency        string
	PlatformFee     decimal.Decimal
	ProviderFee     decimal.Decimal
	NetworkFee      decimal.Decimal
}

// NewOrderFromLink builds a CREATED order under the given link,
// inheriting the link's amount and currency when the input leaves them
// unset. The order number is assigned by the repository, which owns the
// per-day sequence.
func NewOrderFromLink(link *PaymentLink, input NewOrderInput) (*PaymentOrder, error) {
	if link == nil {
		return nil, shared.NewBusinessRuleViolation("order_link", "payment order requires a payment link")
	}
	amount := input.RequestedAmount
	currency := input.Currency
	if amount.IsZero() {
		amount = link.Amount
	}
	if currency == "" {
		currency = link.Currency
	}
	if amount.Sign() <= 0 {
		return nil, shared.NewBusinessRuleViolation("order_amount",
			fmt.Sprintf("requested amount must be positive, got %s", amount))
	}
	if currency == "" {
		return nil, shared.NewBusinessRuleViolation("order_currency", "requested currency is required")
	}

	o := &PaymentOrder{
		ID:                uuid.New().String(),
		OrganizationID:    link.OrganizationID,
		PaymentLinkID:     link.ID,
		CustomerID:        input.CustomerID,
		Status:            StatusCreated,
		RequestedAmount:   amount,
		RequestedCurrency: currency,
		PlatformFee:       input.PlatformFee,
		ProviderFee:       input.ProviderFee,
		NetworkFee:        input.NetworkFee,
		KYCStatus:         KYCStatusPending,
	}
	o.TotalFee = o.feeSum()
	return o, nil
}

func (o *PaymentOrder) feeSum() decimal.Decimal {
	return o.PlatformFee.Add(o.ProviderFee).Add(o.NetworkFee)
}

// FeesConsistent reports whether the stored total matches its parts.
func (o *PaymentOrder) FeesConsistent() bool {
	return o.TotalFee.Equal(o.feeSum())
}

// ValidateSettlement checks the settled-iff-completed invariant.
func (o *PaymentOrder) ValidateSettlement() error {
	settled := o.SettledAmount != nil && o.SettledCurrency != nil
	if o.Status == StatusCompleted && !settled {
		return shared.NewBusinessRuleViolation("order_settlement",
			"completed order must carry settled amount and currency")
	}
	if o.Status != StatusCompleted && o.Status != StatusRefunded && settled {
		return shared.NewBusinessRuleViolation("order_settlement",
			fmt.Sprintf("order in status %s must not carry settlement fields", o.Status))
	}
	return nil
}

// OrderNumberFormat is the date-prefixed per-day sequence shape.
const orderNumberSeqDigits = 6

// FormatOrderNumber renders "YYYYMMDD-NNNNNN" for the given UTC day and
// sequence.
func FormatOrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s-%0*d", day.UTC().Format("20060102"), orderNumberSeqDigits, seq)
}

// OrderNumberPrefix returns the "YYYYMMDD-" prefix for a day, the LIKE
// pattern anchor the sequence generator scans with.
func OrderNumberPrefix(day time.Time) string {
	return day.UTC().Format("20060102") + "-"
}

// ParseOrderNumberSeq extracts the numeric sequence from an order
// number. Returns 0 when the shape does not match.
func ParseOrderNumberSeq(number string) int {
	var datePart string
	var seq int
	if _, err := fmt.Sscanf(number, "%8s-%06d", &datePart, &seq); err != nil {
		return 0
	}
	return seq
}
