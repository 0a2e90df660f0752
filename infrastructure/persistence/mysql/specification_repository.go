package mysql

import (
	"context"

	"gorm.io/gorm"

	"paycore/domain/shared"
	"paycore/infrastructure/persistence/specification"
)

// SpecificationRepository extends BaseRepository with queries driven by
// specification trees. The tree is compiled once per call; the same tree
// is reusable across repositories whose entities share column names.
type SpecificationRepository[E shared.Entity] struct {
	*BaseRepository[E]
}

func NewSpecificationRepository[E shared.Entity](db *gorm.DB) *SpecificationRepository[E] {
	return &SpecificationRepository[E]{BaseRepository: NewBaseRepository[E](db)}
}

// applySpec compiles the tree onto the query builder.
func (r *SpecificationRepository[E]) applySpec(ctx context.Context, db *gorm.DB, spec shared.Specification) (*gorm.DB, error) {
	sql, args, err := specification.Compile(spec)
	if err != nil {
		return nil, shared.NewStorageError(r.entityName, err)
	}
	return r.scoped(ctx, db).Where(sql, args...), nil
}

// FindBySpecification returns the page of entities matching the tree.
func (r *SpecificationRepository[E]) FindBySpecification(ctx context.Context, spec shared.Specification, opts ListOptions) ([]*E, error) {
	db, err := r.applySpec(ctx, r.getDB(ctx), spec)
	if err != nil {
		return nil, err
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

// CountBySpecification counts matching rows.
func (r *SpecificationRepository[E]) CountBySpecification(ctx context.Context, spec shared.Specification) (int64, error) {
	var entity E
	db, err := r.applySpec(ctx, r.getDB(ctx).Model(&entity), spec)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, shared.NewStorageError(r.entityName, err)
	}
	return count, nil
}

// ExistsBySpecification reports whether any row matches.
func (r *SpecificationRepository[E]) ExistsBySpecification(ctx context.Context, spec shared.Specification) (bool, error) {
	count, err := r.CountBySpecification(ctx, spec)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateBySpecification bulk-updates matching rows with the given column
// values and returns the affected count. Flush-level, like all writes.
func (r *SpecificationRepository[E]) UpdateBySpecification(ctx context.Context, spec shared.Specification, values map[string]any) (int64, error) {
	for column := range values {
		if !columnPattern.MatchString(column) {
			return 0, shared.NewStorageError(r.entityName,
				&invalidColumnError{column: column})
		}
	}

	var entity E
	db, err := r.applySpec(ctx, r.getDB(ctx).Model(&entity), spec)
	if err != nil {
		return 0, err
	}
	result := db.Updates(values)
	if result.Error != nil {
		if r.isDuplicateKeyError(result.Error) {
			return 0, shared.NewDuplicateError(r.entityName, result.Error)
		}
		return 0, shared.NewStorageError(r.entityName, result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteBySpecification bulk-deletes matching rows and returns the
// affected count.
func (r *SpecificationRepository[E]) DeleteBySpecification(ctx context.Context, spec shared.Specification) (int64, error) {
	var entity E
	db, err := r.applySpec(ctx, r.getDB(ctx), spec)
	if err != nil {
		return 0, err
	}
	result := db.Delete(&entity)
	if result.Error != nil {
		return 0, shared.NewStorageError(r.entityName, result.Error)
	}
	return result.RowsAffected, nil
}

type invalidColumnError struct {
	column string
}

func (e *invalidColumnError) Error() string {
	return "invalid update column " + e.column
}
