package mysql

import (
	"context"

	"gorm.io/gorm"

	"paycore/domain/shared"
	"paycore/infrastructure/persistence"
)

// EventHooks derive domain events from entity mutations. Any hook may be
// nil (no event for that mutation) or return nil to suppress a specific
// occurrence. The update hook only fires when at least one field
// actually changed.
type EventHooks[E shared.Entity] struct {
	Created func(entity *E) *shared.DomainEvent
	Updated func(entity *E, changes []shared.FieldChange) *shared.DomainEvent
	Deleted func(id, organizationID string) *shared.DomainEvent
}

// EventRepository decorates a SpecificationRepository: every successful
// create, update and delete hands a derived event to the collector. The
// collector is normally the owning unit of work, which buffers events
// and releases them to the publisher only after a successful commit, so
// no event ever describes a mutation that was rolled back.
type EventRepository[E shared.Entity] struct {
	*SpecificationRepository[E]
	hooks     EventHooks[E]
	collector shared.EventCollector
}

func NewEventRepository[E shared.Entity](db *gorm.DB, hooks EventHooks[E], collector shared.EventCollector) *EventRepository[E] {
	return &EventRepository[E]{
		SpecificationRepository: NewSpecificationRepository[E](db),
		hooks:                   hooks,
		collector:               collector,
	}
}

func (r *EventRepository[E]) collect(event *shared.DomainEvent) {
	if event == nil || r.collector == nil {
		return
	}
	r.collector.Collect(*event)
}

// Create inserts the entity, then emits exactly one created event whose
// aggregate id is the new entity's id.
func (r *EventRepository[E]) Create(ctx context.Context, entity *E) error {
	if err := r.SpecificationRepository.Create(ctx, entity); err != nil {
		return err
	}
	if r.hooks.Created != nil {
		r.collect(r.hooks.Created(entity))
	}
	return nil
}

// Update applies the patch; the updated event fires iff the patch
// changed at least one field, carrying the old and new value per field.
func (r *EventRepository[E]) Update(ctx context.Context, entity *E, patch shared.Patch[E]) ([]shared.FieldChange, error) {
	changes, err := r.SpecificationRepository.Update(ctx, entity, patch)
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 && r.hooks.Updated != nil {
		r.collect(r.hooks.Updated(entity, changes))
	}
	return changes, nil
}

// Delete removes the row and emits a deleted event when a row was
// actually removed.
func (r *EventRepository[E]) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := r.SpecificationRepository.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	if r.hooks.Deleted != nil {
		r.collect(r.hooks.Deleted(id, persistence.OrganizationFromContext(ctx)))
	}
	return true, nil
}
