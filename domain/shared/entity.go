package shared

// Entity is implemented by every persisted aggregate.
type Entity interface {
	// GetID returns the global identifier of the entity.
	GetID() string

	// EntityName returns the stable lowercase name used in error
	// messages and event aggregate types ("payment_order").
	EntityName() string

	// FieldValues exposes the entity's column values for in-memory
	// specification evaluation. Nullable columns map to nil when unset.
	FieldValues() FieldValues
}

// TenantScoped is implemented by entities that belong to exactly one
// organization. Repositories filter every read and write by it.
type TenantScoped interface {
	GetOrganizationID() string
}

// FieldChange records one field mutation produced by a Patch, keyed by
// column name.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// Patch applies a partial update to an entity and reports the fields it
// actually changed. Each entity defines its own patch struct with one
// nullable slot per mutable field, so the update surface is enumerable
// and typo-proof.
type Patch[E any] interface {
	Apply(entity *E) []FieldChange
}

// ChangeColumns converts a change list into the column map a bulk UPDATE
// expects.
func ChangeColumns(changes []FieldChange) map[string]any {
	if len(changes) == 0 {
		return nil
	}
	cols := make(map[string]any, len(changes))
	for _, c := range changes {
		cols[c.Field] = c.New
	}
	return cols
}
