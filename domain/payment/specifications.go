package payment

import (
	"time"

	"paycore/domain/shared"
)

// Typed specification constructors for payment orders. Binding the
// column names here, next to the entity, keeps call sites free of raw
// strings while the trees stay composable with shared.And/Or/Not.

// ByOrganization scopes to one tenant.
func ByOrganization(organizationID string) shared.Specification {
	return shared.Equal(ColOrganizationID, organizationID)
}

// ByStatus matches one lifecycle status.
func ByStatus(status Status) shared.Specification {
	return shared.Equal(ColStatus, string(status))
}

// ByAnyStatus matches any of the given statuses.
func ByAnyStatus(statuses ...Status) shared.Specification {
	values := make([]any, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return shared.In(ColStatus, values...)
}

// ByPaymentLink matches orders created under one link.
func ByPaymentLink(linkID string) shared.Specification {
	return shared.Equal(ColPaymentLinkID, linkID)
}

// ByCustomer matches orders for one customer.
func ByCustomer(customerID string) shared.Specification {
	return shared.Equal(ColCustomerID, customerID)
}

// ByOrderNumberPrefix matches one organization-day's numbers.
func ByOrderNumberPrefix(day time.Time) shared.Specification {
	return shared.Like(ColOrderNumber, OrderNumberPrefix(day)+"%")
}

// CreatedBetween bounds creation time inclusively.
func CreatedBetween(from, to time.Time) shared.Specification {
	return shared.Between(ColCreatedAt, from, to)
}

// UpdatedBefore matches orders whose last touch is at or before t.
func UpdatedBefore(t time.Time) shared.Specification {
	return shared.LessOrEqual(ColUpdatedAt, t)
}

// Terminal matches orders whose forward processing has ended.
func Terminal() shared.Specification {
	return ByAnyStatus(StatusCompleted, StatusCancelled, StatusRefunded)
}
