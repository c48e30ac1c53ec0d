package query

import (
	"fmt"
	"reflect"
	"strings"

	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
)

var knownLookups = map[filter.Lookup]struct{}{
	filter.Exact: {}, filter.IExact: {}, filter.Contains: {}, filter.IContains: {}, filter.StartsWith: {},
	filter.In: {}, filter.Gt: {}, filter.Gte: {}, filter.Lt: {}, filter.Lte: {}, filter.IsNull: {},
}

// Schema lists the filterable fields of an entity and their columns.
type Schema struct {
	Name       string
	Table      string
	PrimaryKey string

	columns map[string]string
	lookups map[string]map[filter.Lookup]struct{}
}

// NewSchema registers fields whose column equals the field name.
func NewSchema(name, table, primaryKey string, fields ...string) *Schema {
	s := &Schema{
		Name:       name,
		Table:      table,
		PrimaryKey: primaryKey,
		columns:    make(map[string]string, len(fields)+1),
		lookups:    make(map[string]map[filter.Lookup]struct{}),
	}
	s.columns[primaryKey] = primaryKey
	for _, f := range fields {
		s.columns[f] = f
	}
	return s
}

// RestrictLookups limits which lookups a field accepts.
func (s *Schema) RestrictLookups(field string, lookups ...filter.Lookup) *Schema {
	set := make(map[filter.Lookup]struct{}, len(lookups))
	for _, l := range lookups {
		set[l] = struct{}{}
	}
	s.lookups[field] = set
	return s
}

// Column resolves a field to its column or fails with an invalid filter error.
func (s *Schema) Column(field string) (string, error) {
	col, ok := s.columns[field]
	if !ok {
		return "", customErrors.NewInvalidFilter(fmt.Sprintf("%s has no field %q", s.Name, field))
	}
	return col, nil
}

type condition struct {
	SQL  string
	Args []any
}

// Compile validates filters and turns them into SQL predicates.
func (s *Schema) Compile(filters []filter.Filter) ([]condition, error) {
	out := make([]condition, 0, len(filters))
	for _, f := range filters {
		c, err := s.compile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Schema) compile(f filter.Filter) (condition, error) {
	lookup := f.Lookup
	if lookup == "" {
		lookup = filter.Exact
	}
	if _, ok := knownLookups[lookup]; !ok {
		return condition{}, customErrors.NewInvalidFilter(fmt.Sprintf("unsupported lookup %q in %q", lookup, f.Key()))
	}
	col, err := s.Column(f.Field)
	if err != nil {
		return condition{}, err
	}
	if allowed, ok := s.lookups[f.Field]; ok {
		if _, ok := allowed[lookup]; !ok {
			return condition{}, customErrors.NewInvalidFilter(fmt.Sprintf("lookup %q is not allowed on %s.%s", lookup, s.Name, f.Field))
		}
	}

	invalid := func(want string) (condition, error) {
		return condition{}, customErrors.NewInvalidFilter(fmt.Sprintf("%q expects %s, got %T", f.Key(), want, f.Value))
	}

	switch lookup {
	case filter.Exact:
		if f.Value == nil {
			return condition{SQL: col + " IS NULL"}, nil
		}
		return condition{SQL: col + " = ?", Args: []any{f.Value}}, nil
	case filter.IExact:
		v, ok := f.Value.(string)
		if !ok {
			return invalid("a string")
		}
		return condition{SQL: "LOWER(" + col + ") = LOWER(?)", Args: []any{v}}, nil
	case filter.Contains, filter.IContains, filter.StartsWith:
		v, ok := f.Value.(string)
		if !ok {
			return invalid("a string")
		}
		pattern := escapeLike(v) + "%"
		if lookup != filter.StartsWith {
			pattern = "%" + pattern
		}
		if lookup == filter.IContains {
			return condition{SQL: "LOWER(" + col + `) LIKE LOWER(?) ESCAPE '\'`, Args: []any{pattern}}, nil
		}
		return condition{SQL: col + ` LIKE ? ESCAPE '\'`, Args: []any{pattern}}, nil
	case filter.In:
		if f.Value == nil {
			return invalid("a slice")
		}
		if k := reflect.TypeOf(f.Value).Kind(); k != reflect.Slice && k != reflect.Array {
			return invalid("a slice")
		}
		return condition{SQL: col + " IN ?", Args: []any{f.Value}}, nil
	case filter.Gt:
		return condition{SQL: col + " > ?", Args: []any{f.Value}}, nil
	case filter.Gte:
		return condition{SQL: col + " >= ?", Args: []any{f.Value}}, nil
	case filter.Lt:
		return condition{SQL: col + " < ?", Args: []any{f.Value}}, nil
	case filter.Lte:
		return condition{SQL: col + " <= ?", Args: []any{f.Value}}, nil
	case filter.IsNull:
		v, ok := f.Value.(bool)
		if !ok {
			return invalid("a bool")
		}
		if v {
			return condition{SQL: col + " IS NULL"}, nil
		}
		return condition{SQL: col + " IS NOT NULL"}, nil
	}
	return condition{}, customErrors.NewInvalidFilter(fmt.Sprintf("unsupported lookup %q", lookup))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
