package shared

import (
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Operator identifies a leaf comparison.
type Operator string

const (
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "ne"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpBetween        Operator = "between"
	OpIn             Operator = "in"
	OpLike           Operator = "like"
	OpIsNull         Operator = "is_null"
	OpIsNotNull      Operator = "is_not_null"
)

// FieldValues maps column names to an entity's current values, the view
// the in-memory evaluator works against. Null columns map to nil.
type FieldValues map[string]any

// Specification is an immutable, composable predicate tree. Leaf nodes
// bind a column name to a comparison; composite nodes combine children.
// A specification is storage-agnostic: the mysql layer compiles it to a
// WHERE fragment, while IsSatisfiedBy evaluates it against field values
// for mock repositories and tests.
type Specification interface {
	IsSatisfiedBy(fields FieldValues) bool
}

// Comparison is a leaf predicate binding one column to one operator.
type Comparison struct {
	Field  string
	Op     Operator
	Value  any   // comparison operand (lower bound for Between)
	Upper  any   // upper bound, Between only
	Values []any // operand set, In only
}

// AndSpecification is satisfied when every child is. An empty And is
// always true.
type AndSpecification struct {
	Specs []Specification
}

// OrSpecification is satisfied when at least one child is. An empty Or
// is always false.
type OrSpecification struct {
	Specs []Specification
}

// NotSpecification negates its child.
type NotSpecification struct {
	Spec Specification
}

// Leaf constructors.

func Equal(field string, value any) Specification {
	return Comparison{Field: field, Op: OpEqual, Value: value}
}

func NotEqual(field string, value any) Specification {
	return Comparison{Field: field, Op: OpNotEqual, Value: value}
}

func GreaterThan(field string, value any) Specification {
	return Comparison{Field: field, Op: OpGreaterThan, Value: value}
}

func GreaterOrEqual(field string, value any) Specification {
	return Comparison{Field: field, Op: OpGreaterOrEqual, Value: value}
}

func LessThan(field string, value any) Specification {
	return Comparison{Field: field, Op: OpLessThan, Value: value}
}

func LessOrEqual(field string, value any) Specification {
	return Comparison{Field: field, Op: OpLessOrEqual, Value: value}
}

func Between(field string, lower, upper any) Specification {
	return Comparison{Field: field, Op: OpBetween, Value: lower, Upper: upper}
}

func In(field string, values ...any) Specification {
	return Comparison{Field: field, Op: OpIn, Values: values}
}

// Like matches SQL LIKE patterns using % and _ wildcards.
func Like(field, pattern string) Specification {
	return Comparison{Field: field, Op: OpLike, Value: pattern}
}

func IsNull(field string) Specification {
	return Comparison{Field: field, Op: OpIsNull}
}

func IsNotNull(field string) Specification {
	return Comparison{Field: field, Op: OpIsNotNull}
}

// Composite constructors.

func And(specs ...Specification) Specification {
	return AndSpecification{Specs: specs}
}

func Or(specs ...Specification) Specification {
	return OrSpecification{Specs: specs}
}

func Not(spec Specification) Specification {
	return NotSpecification{Spec: spec}
}

// IsSatisfiedBy evaluates the leaf against the given field values.
func (c Comparison) IsSatisfiedBy(fields FieldValues) bool {
	value, ok := fields[c.Field]
	if !ok {
		value = nil
	}

	switch c.Op {
	case OpIsNull:
		return isNil(value)
	case OpIsNotNull:
		return !isNil(value)
	}

	// SQL comparison semantics: NULL never satisfies a value comparison.
	if isNil(value) {
		return false
	}

	switch c.Op {
	case OpEqual:
		return equalValues(value, c.Value)
	case OpNotEqual:
		return !equalValues(value, c.Value)
	case OpGreaterThan:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp > 0
	case OpGreaterOrEqual:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp >= 0
	case OpLessThan:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp < 0
	case OpLessOrEqual:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp <= 0
	case OpBetween:
		lo, okLo := compareValues(value, c.Value)
		hi, okHi := compareValues(value, c.Upper)
		return okLo && okHi && lo >= 0 && hi <= 0
	case OpIn:
		for _, candidate := range c.Values {
			if equalValues(value, candidate) {
				return true
			}
		}
		return false
	case OpLike:
		pattern, ok := c.Value.(string)
		if !ok {
			return false
		}
		s, ok := asString(value)
		if !ok {
			return false
		}
		return matchLike(s, pattern)
	}
	return false
}

func (s AndSpecification) IsSatisfiedBy(fields FieldValues) bool {
	for _, child := range s.Specs {
		if !child.IsSatisfiedBy(fields) {
			return false
		}
	}
	return true
}

func (s OrSpecification) IsSatisfiedBy(fields FieldValues) bool {
	for _, child := range s.Specs {
		if child.IsSatisfiedBy(fields) {
			return true
		}
	}
	return false
}

func (s NotSpecification) IsSatisfiedBy(fields FieldValues) bool {
	return !s.Spec.IsSatisfiedBy(fields)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}

// deref unwraps pointers so nullable columns compare by value.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func equalValues(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(deref(a), deref(b))
}

// compareValues orders two values of compatible kinds. It understands
// the column types the entities use: integers, floats, strings,
// time.Time and decimal.Decimal.
func compareValues(a, b any) (int, bool) {
	a, b = deref(a), deref(b)
	if a == nil || b == nil {
		return 0, false
	}

	if da, ok := asDecimal(a); ok {
		if db, ok := asDecimal(b); ok {
			return da.Cmp(db), true
		}
		return 0, false
	}

	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case ta.Before(tb):
			return -1, true
		case ta.After(tb):
			return 1, true
		default:
			return 0, true
		}
	}

	if sa, ok := asString(a); ok {
		sb, ok := asString(b)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}

	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}

func asDecimal(v any) (decimal.Decimal, bool) {
	d, ok := v.(decimal.Decimal)
	return d, ok
}

func asString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// matchLike evaluates a SQL LIKE pattern (% any run, _ one rune).
func matchLike(s, pattern string) bool {
	return likeMatch([]rune(s), []rune(pattern))
}

func likeMatch(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeMatch(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		return len(s) > 0 && likeMatch(s[1:], p[1:])
	default:
		return len(s) > 0 && s[0] == p[0] && likeMatch(s[1:], p[1:])
	}
}
