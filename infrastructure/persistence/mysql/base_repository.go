package mysql

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"paycore/domain/shared"
	"paycore/infrastructure/persistence"
)

const mysqlErrDuplicateEntry = 1062

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ListOptions bounds and orders a listing. Limit is passed through as
// given; capping it is the caller's concern.
type ListOptions struct {
	Skip    int
	Limit   int
	Filters map[string]any // column equality filters
	OrderBy string         // "column" or "column desc"; default "created_at desc"
}

// BaseRepository is the generic tenant-scoped CRUD primitive over one
// entity type. All writes are flush-level: the repository never commits,
// that is the unit of work's exclusive job. Tenant scoping is applied
// automatically for entities implementing shared.TenantScoped, using
// the organization id carried on the context.
type BaseRepository[E shared.Entity] struct {
	db           *gorm.DB
	entityName   string
	tenantScoped bool
}

// NewBaseRepository binds a repository to a session. The session may be
// a transaction owned by a unit of work or a plain pooled handle.
func NewBaseRepository[E shared.Entity](db *gorm.DB) *BaseRepository[E] {
	var zero E
	_, tenantScoped := any(zero).(shared.TenantScoped)
	return &BaseRepository[E]{
		db:           db,
		entityName:   zero.EntityName(),
		tenantScoped: tenantScoped,
	}
}

// EntityName returns the stable entity name used in errors and events.
func (r *BaseRepository[E]) EntityName() string { return r.entityName }

// getDB prefers the transaction attached to the context, so repository
// calls inside a unit of work all share one transaction.
func (r *BaseRepository[E]) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// scoped applies the tenant filter when the entity is tenant-scoped and
// the context carries an organization id.
func (r *BaseRepository[E]) scoped(ctx context.Context, db *gorm.DB) *gorm.DB {
	if !r.tenantScoped {
		return db
	}
	if orgID := persistence.OrganizationFromContext(ctx); orgID != "" {
		return db.Where("organization_id = ?", orgID)
	}
	return db
}

func (r *BaseRepository[E]) isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

// Create inserts one row and leaves it pending in the transaction.
// Unique-constraint violations come back as ErrDuplicate, everything
// else as ErrStorage.
func (r *BaseRepository[E]) Create(ctx context.Context, entity *E) error {
	if err := r.getDB(ctx).Create(entity).Error; err != nil {
		if r.isDuplicateKeyError(err) {
			return shared.NewDuplicateError(r.entityName, err)
		}
		return shared.NewStorageError(r.entityName, err)
	}
	return nil
}

// Get fetches one entity by id within the tenant scope. A missing row
// returns (nil, nil).
func (r *BaseRepository[E]) Get(ctx context.Context, id string) (*E, error) {
	var entity E
	db := r.scoped(ctx, r.getDB(ctx))
	if err := db.First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, shared.NewStorageError(r.entityName, err)
	}
	return &entity, nil
}

// GetOrFail is Get with a missing row mapped to ErrNotFound.
func (r *BaseRepository[E]) GetOrFail(ctx context.Context, id string) (*E, error) {
	entity, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, shared.NewNotFoundError(r.entityName)
	}
	return entity, nil
}

// List returns a page ordered by opts.OrderBy, newest first when
// unspecified.
func (r *BaseRepository[E]) List(ctx context.Context, opts ListOptions) ([]*E, error) {
	db := r.scoped(ctx, r.getDB(ctx))

	for column, value := range opts.Filters {
		if !columnPattern.MatchString(column) {
			return nil, shared.NewStorageError(r.entityName,
				fmt.Errorf("invalid filter column %q", column))
		}
		db = db.Where(column+" = ?", value)
	}

	order, err := r.orderClause(opts.OrderBy)
	if err != nil {
		return nil, err
	}
	db = db.Order(order)

	if opts.Skip > 0 {
		db = db.Offset(opts.Skip)
	}
	if opts.Limit > 0 {
		db = db.Limit(opts.Limit)
	}

	var entities []*E
	if err := db.Find(&entities).Error; err != nil {
		return nil, shared.NewStorageError(r.entityName, err)
	}
	return entities, nil
}

func (r *BaseRepository[E]) orderClause(orderBy string) (string, error) {
	if orderBy == "" {
		return "created_at DESC", nil
	}
	column, direction, _ := strings.Cut(strings.TrimSpace(orderBy), " ")
	if !columnPattern.MatchString(column) {
		return "", shared.NewStorageError(r.entityName,
			fmt.Errorf("invalid order column %q", column))
	}
	switch strings.ToUpper(strings.TrimSpace(direction)) {
	case "":
		return column + " ASC", nil
	case "ASC":
		return column + " ASC", nil
	case "DESC":
		return column + " DESC", nil
	default:
		return "", shared.NewStorageError(r.entityName,
			fmt.Errorf("invalid order direction %q", direction))
	}
}

// Update applies a typed patch and flushes only the columns that
// actually changed. It returns the change list; an empty list means the
// patch was a no-op and nothing touched the database.
func (r *BaseRepository[E]) Update(ctx context.Context, entity *E, patch shared.Patch[E]) ([]shared.FieldChange, error) {
	changes := patch.Apply(entity)
	if len(changes) == 0 {
		return nil, nil
	}

	db := r.scoped(ctx, r.getDB(ctx))
	result := db.Model(entity).Where("id = ?", (*entity).GetID()).
		Updates(shared.ChangeColumns(changes))
	if result.Error != nil {
		if r.isDuplicateKeyError(result.Error) {
			return nil, shared.NewDuplicateError(r.entityName, result.Error)
		}
		return nil, shared.NewStorageError(r.entityName, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, shared.NewNotFoundError(r.entityName)
	}
	return changes, nil
}

// Delete hard-deletes one row within the tenant scope and reports
// whether a row was removed.
func (r *BaseRepository[E]) Delete(ctx context.Context, id string) (bool, error) {
	var entity E
	db := r.scoped(ctx, r.getDB(ctx))
	result := db.Where("id = ?", id).Delete(&entity)
	if result.Error != nil {
		return false, shared.NewStorageError(r.entityName, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Count returns the number of rows matching the equality filters.
func (r *BaseRepository[E]) Count(ctx context.Context, filters map[string]any) (int64, error) {
	var entity E
	db := r.scoped(ctx, r.getDB(ctx)).Model(&entity)
	for column, value := range filters {
		if !columnPattern.MatchString(column) {
			return 0, shared.NewStorageError(r.entityName,
				fmt.Errorf("invalid filter column %q", column))
		}
		db = db.Where(column+" = ?", value)
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, shared.NewStorageError(r.entityName, err)
	}
	return count, nil
}

// Exists reports whether an id is present within the tenant scope.
func (r *BaseRepository[E]) Exists(ctx context.Context, id string) (bool, error) {
	count, err := r.Count(ctx, map[string]any{"id": id})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
