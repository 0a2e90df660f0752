// Package persistence carries the cross-cutting context plumbing shared
// by all storage implementations: the active transaction handle, the
// tenant (organization) scope and the request id used for log
// correlation.
package persistence

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}
type orgKey struct{}
type requestIDKey struct{}

// ContextWithTx attaches the active GORM transaction. Repositories
// resolve it before falling back to their default session, which is how
// multiple repository writes participate in one unit of work.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction, or nil when none is attached.
func TxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// ContextWithOrganization attaches the tenant scope. Every read and
// write on a tenant-scoped entity is filtered by it.
func ContextWithOrganization(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, orgKey{}, organizationID)
}

// OrganizationFromContext returns the tenant scope, or "" when the call
// is not tenant-bound (system jobs, cross-tenant maintenance).
func OrganizationFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(orgKey{}).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID attaches the request id for log correlation.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
