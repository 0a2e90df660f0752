// Package specification compiles domain specification trees into SQL
// WHERE fragments. The walk is recursive: leaf comparisons bind a
// column against placeholders, composites join children with AND/OR or
// negate. Field names are validated against a strict identifier shape
// so a specification can never smuggle SQL.
package specification

import (
	"fmt"
	"regexp"
	"strings"

	"paycore/domain/shared"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Compile turns a specification tree into a WHERE fragment plus its
// bind arguments. An empty And compiles to "1=1" (always true), an
// empty Or to "1=0" (always false), mirroring the in-memory evaluator.
// A nil specification compiles to "1=1".
func Compile(spec shared.Specification) (string, []any, error) {
	if spec == nil {
		return "1=1", nil, nil
	}
	switch s := spec.(type) {
	case shared.Comparison:
		return compileComparison(s)
	case shared.AndSpecification:
		return compileComposite(s.Specs, " AND ", "1=1")
	case shared.OrSpecification:
		return compileComposite(s.Specs, " OR ", "1=0")
	case shared.NotSpecification:
		inner, args, err := Compile(s.Spec)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", args, nil
	default:
		return "", nil, fmt.Errorf("unsupported specification type %T", spec)
	}
}

func compileComposite(specs []shared.Specification, sep, empty string) (string, []any, error) {
	if len(specs) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(specs))
	var args []any
	for _, child := range specs {
		sql, childArgs, err := Compile(child)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		args = append(args, childArgs...)
	}
	return strings.Join(parts, sep), args, nil
}

func compileComparison(c shared.Comparison) (string, []any, error) {
	if !identPattern.MatchString(c.Field) {
		return "", nil, fmt.Errorf("invalid field name %q in specification", c.Field)
	}

	switch c.Op {
	case shared.OpEqual:
		return c.Field + " = ?", []any{c.Value}, nil
	case shared.OpNotEqual:
		return c.Field + " <> ?", []any{c.Value}, nil
	case shared.OpGreaterThan:
		return c.Field + " > ?", []any{c.Value}, nil
	case shared.OpGreaterOrEqual:
		return c.Field + " >= ?", []any{c.Value}, nil
	case shared.OpLessThan:
		return c.Field + " < ?", []any{c.Value}, nil
	case shared.OpLessOrEqual:
		return c.Field + " <= ?", []any{c.Value}, nil
	case shared.OpBetween:
		return c.Field + " BETWEEN ? AND ?", []any{c.Value, c.Upper}, nil
	case shared.OpIn:
		if len(c.Values) == 0 {
			// IN over an empty set matches nothing.
			return "1=0", nil, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(c.Values)), ",")
		return c.Field + " IN (" + placeholders + ")", c.Values, nil
	case shared.OpLike:
		return c.Field + " LIKE ?", []any{c.Value}, nil
	case shared.OpIsNull:
		return c.Field + " IS NULL", nil, nil
	case shared.OpIsNotNull:
		return c.Field + " IS NOT NULL", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
	}
}
