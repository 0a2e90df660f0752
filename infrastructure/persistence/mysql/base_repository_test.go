package mysql

import (
	"errors"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"paycore/domain/payment"
	"paycore/domain/shared"
)

func TestRepositoryTenantScopeDetection(t *testing.T) {
	orders := NewBaseRepository[payment.PaymentOrder](nil)
	assert.True(t, orders.tenantScoped)
	assert.Equal(t, "payment_order", orders.EntityName())

	orgs := NewBaseRepository[payment.Organization](nil)
	assert.False(t, orgs.tenantScoped, "the tenant root itself is not scoped")
	assert.Equal(t, "organization", orgs.EntityName())
}

func TestIsDuplicateKeyError(t *testing.T) {
	r := NewBaseRepository[payment.PaymentOrder](nil)

	assert.False(t, r.isDuplicateKeyError(nil))
	assert.False(t, r.isDuplicateKeyError(errors.New("connection refused")))

	assert.True(t, r.isDuplicateKeyError(gorm.ErrDuplicatedKey))
	assert.True(t, r.isDuplicateKeyError(
		&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry '20260115-000001'"}))
	assert.True(t, r.isDuplicateKeyError(
		errors.New("Error 1062: Duplicate entry 'org-1-20260115-000001' for key 'uniq_org_order_number'")))

	deadlock := &mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock found"}
	assert.False(t, r.isDuplicateKeyError(deadlock))
}

func TestOrderClause(t *testing.T) {
	r := NewBaseRepository[payment.PaymentOrder](nil)

	cases := []struct {
		in   string
		want string
	}{
		{"", "created_at DESC"},
		{"created_at", "created_at ASC"},
		{"created_at asc", "created_at ASC"},
		{"updated_at DESC", "updated_at DESC"},
		{"  order_number desc  ", "order_number DESC"},
	}
	for _, tc := range cases {
		got, err := r.orderClause(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	bad := []string{
		"created_at; DROP TABLE payment_orders",
		"created_at DESCENDING",
		"CreatedAt",
		"created_at asc extra",
	}
	for _, in := range bad {
		_, err := r.orderClause(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, shared.ErrStorage), in)
	}
}

func TestChangeColumns(t *testing.T) {
	columns := shared.ChangeColumns([]shared.FieldChange{
		{Field: "status", Old: "CREATED", New: "PROCESSING"},
		{Field: "retry_count", Old: 0, New: 1},
	})

	assert.Equal(t, map[string]any{"status": "PROCESSING", "retry_count": 1}, columns)
	assert.Empty(t, shared.ChangeColumns(nil))
}
