/*
Package mock provides in-memory repository doubles for tests. They
honour the same contracts as the MySQL repositories: tenant scoping
from the context, specification filtering, patch-based updates and
duplicate detection, without touching a database.
*/
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paycore/domain/shared"
	"paycore/infrastructure/persistence"
	"paycore/infrastructure/persistence/mysql"
)

// UniqueKeyFunc derives a uniqueness key for an entity. Entities whose
// keys collide are rejected the way a unique index would reject them.
// An empty key disables the check for that entity.
type UniqueKeyFunc[E shared.Entity] func(entity *E) string

// Repository is a thread-safe in-memory repository for entity type E.
type Repository[E shared.Entity] struct {
	mu        sync.RWMutex
	entities  map[string]E
	uniqueKey UniqueKeyFunc[E]
	collector shared.EventCollector
	hooks     mysql.EventHooks[E]
}

// NewRepository creates an empty in-memory repository.
func NewRepository[E shared.Entity]() *Repository[E] {
	return &Repository[E]{entities: make(map[string]E)}
}

// WithUniqueKey installs a uniqueness constraint.
func (r *Repository[E]) WithUniqueKey(fn UniqueKeyFunc[E]) *Repository[E] {
	r.uniqueKey = fn
	return r
}

// WithEvents wires an event collector and hooks, mirroring the
// event-emitting MySQL repositories.
func (r *Repository[E]) WithEvents(collector shared.EventCollector, hooks mysql.EventHooks[E]) *Repository[E] {
	r.collector = collector
	r.hooks = hooks
	return r
}

func (r *Repository[E]) entityName() string {
	var zero E
	return zero.EntityName()
}

func (r *Repository[E]) tenantMatches(ctx context.Context, entity E) bool {
	scoped, ok := any(entity).(shared.TenantScoped)
	if !ok {
		return true
	}
	org := persistence.OrganizationFromContext(ctx)
	if org == "" {
		return true
	}
	return scoped.GetOrganizationID() == org
}

func (r *Repository[E]) collect(event *shared.DomainEvent) {
	if r.collector == nil || event == nil {
		return
	}
	r.collector.Collect(*event)
}

// Create stores the entity, enforcing ID and unique-key constraints.
func (r *Repository[E]) Create(ctx context.Context, entity *E) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := (*entity).GetID()
	if _, exists := r.entities[id]; exists {
		return shared.NewDuplicateError(r.entityName(), nil)
	}
	if r.uniqueKey != nil {
		if key := r.uniqueKey(entity); key != "" {
			for _, existing := range r.entities {
				if r.uniqueKey(&existing) == key {
					return shared.NewDuplicateError(r.entityName(), nil)
				}
			}
		}
	}
	r.entities[id] = *entity

	if r.hooks.Created != nil {
		r.collect(r.hooks.Created(entity))
	}
	return nil
}

// Get returns the entity or (nil, nil) when absent or out of tenant scope.
func (r *Repository[E]) Get(ctx context.Context, id string) (*E, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, exists := r.entities[id]
	if !exists || !r.tenantMatches(ctx, entity) {
		return nil, nil
	}
	return &entity, nil
}

// GetOrFail returns the entity or a not-found error.
func (r *Repository[E]) GetOrFail(ctx context.Context, id string) (*E, error) {
	entity, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, shared.NewNotFoundError(r.entityName())
	}
	return entity, nil
}

// List returns entities in tenant scope, filtered and sorted per opts.
func (r *Repository[E]) List(ctx context.Context, opts mysql.ListOptions) ([]*E, error) {
	var filterSpec shared.Specification
	if len(opts.Filters) > 0 {
		specs := make([]shared.Specification, 0, len(opts.Filters))
		for field, value := range opts.Filters {
			specs = append(specs, shared.Equal(field, value))
		}
		filterSpec = shared.And(specs...)
	}
	return r.FindBySpecification(ctx, filterSpec, opts)
}

// FindBySpecification evaluates the specification in memory.
func (r *Repository[E]) FindBySpecification(ctx context.Context, spec shared.Specification, opts mysql.ListOptions) ([]*E, error) {
	r.mu.RLock()
	matched := make([]E, 0)
	for _, entity := range r.entities {
		if !r.tenantMatches(ctx, entity) {
			continue
		}
		if spec != nil && !spec.IsSatisfiedBy(entity.FieldValues()) {
			continue
		}
		matched = append(matched, entity)
	}
	r.mu.RUnlock()

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	if err := sortEntities(matched, orderBy); err != nil {
		return nil, err
	}

	if opts.Skip > 0 {
		if opts.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}

	out := make([]*E, len(matched))
	for i := range matched {
		entity := matched[i]
		out[i] = &entity
	}
	return out, nil
}

// CountBySpecification counts matching entities.
func (r *Repository[E]) CountBySpecification(ctx context.Context, spec shared.Specification) (int64, error) {
	entities, err := r.FindBySpecification(ctx, spec, mysql.ListOptions{})
	if err != nil {
		return 0, err
	}
	return int64(len(entities)), nil
}

// ExistsBySpecification reports whether any entity matches.
func (r *Repository[E]) ExistsBySpecification(ctx context.Context, spec shared.Specification) (bool, error) {
	n, err := r.CountBySpecification(ctx, spec)
	return n > 0, err
}

// Update applies the patch and returns the resulting field changes.
func (r *Repository[E]) Update(ctx context.Context, entity *E, patch shared.Patch[E]) ([]shared.FieldChange, error) {
	r.mu.Lock()
	id := (*entity).GetID()
	stored, exists := r.entities[id]
	if !exists || !r.tenantMatches(ctx, stored) {
		r.mu.Unlock()
		return nil, shared.NewNotFoundError(r.entityName())
	}

	changes := patch.Apply(&stored)
	if len(changes) == 0 {
		r.mu.Unlock()
		return nil, nil
	}
	r.entities[id] = stored
	*entity = stored
	r.mu.Unlock()

	if r.hooks.Updated != nil {
		r.collect(r.hooks.Updated(entity, changes))
	}
	return changes, nil
}

// Delete removes the entity, reporting whether a row existed.
func (r *Repository[E]) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	stored, exists := r.entities[id]
	if !exists || !r.tenantMatches(ctx, stored) {
		r.mu.Unlock()
		return false, nil
	}
	delete(r.entities, id)
	r.mu.Unlock()

	if r.hooks.Deleted != nil {
		org := ""
		if scoped, ok := any(stored).(shared.TenantScoped); ok {
			org = scoped.GetOrganizationID()
		}
		r.collect(r.hooks.Deleted(id, org))
	}
	return true, nil
}

// Count counts entities in tenant scope matching the equality filters.
func (r *Repository[E]) Count(ctx context.Context, filters map[string]any) (int64, error) {
	entities, err := r.List(ctx, mysql.ListOptions{Filters: filters, OrderBy: "created_at ASC"})
	if err != nil {
		return 0, err
	}
	return int64(len(entities)), nil
}

// Exists reports whether the entity is present in tenant scope.
func (r *Repository[E]) Exists(ctx context.Context, id string) (bool, error) {
	entity, err := r.Get(ctx, id)
	return entity != nil, err
}

// Reset drops everything.
func (r *Repository[E]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = make(map[string]E)
}

// Len returns the number of stored entities, ignoring tenant scope.
func (r *Repository[E]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

func sortEntities[E shared.Entity](entities []E, orderBy string) error {
	parts := strings.Fields(strings.TrimSpace(orderBy))
	if len(parts) == 0 || len(parts) > 2 {
		return fmt.Errorf("invalid order by clause: %q", orderBy)
	}
	field := parts[0]
	desc := len(parts) == 2 && strings.EqualFold(parts[1], "DESC")

	var sortErr error
	sort.SliceStable(entities, func(i, j int) bool {
		a := entities[i].FieldValues()[field]
		b := entities[j].FieldValues()[field]
		less, err := lessValue(a, b)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		if desc {
			return !less && !valuesEqual(a, b)
		}
		return less
	})
	return sortErr
}

func valuesEqual(a, b any) bool {
	less1, err1 := lessValue(a, b)
	less2, err2 := lessValue(b, a)
	if err1 != nil || err2 != nil {
		return false
	}
	return !less1 && !less2
}

// lessValue orders two field values. Nil sorts first, matching MySQL
// ASC ordering of NULLs.
func lessValue(a, b any) (bool, error) {
	if a == nil {
		return b != nil, nil
	}
	if b == nil {
		return false, nil
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return av < bv, nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return av.Before(bv), nil
	case decimal.Decimal:
		bv, ok := b.(decimal.Decimal)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return av.LessThan(bv), nil
	case int:
		return lessNumeric(float64(av), b)
	case int32:
		return lessNumeric(float64(av), b)
	case int64:
		return lessNumeric(float64(av), b)
	case float32:
		return lessNumeric(float64(av), b)
	case float64:
		return lessNumeric(av, b)
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return !av && bv, nil
	default:
		return false, fmt.Errorf("unsupported sort value type %T", a)
	}
}

func lessNumeric(a float64, b any) (bool, error) {
	switch bv := b.(type) {
	case int:
		return a < float64(bv), nil
	case int32:
		return a < float64(bv), nil
	case int64:
		return a < float64(bv), nil
	case float32:
		return a < float64(bv), nil
	case float64:
		return a < bv, nil
	default:
		return false, fmt.Errorf("cannot compare numeric with %T", b)
	}
}
