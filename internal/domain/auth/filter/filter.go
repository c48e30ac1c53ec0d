// Package filter holds the keyword-style predicates ("email__iexact") that
// repositories accept. Validation against an entity happens in the storage
// adapter.
package filter

import (
	"fmt"
	"strings"
)

// Lookup is the comparison applied to a field.
type Lookup string

const (
	Exact      Lookup = "exact"
	IExact     Lookup = "iexact"
	Contains   Lookup = "contains"
	IContains  Lookup = "icontains"
	StartsWith Lookup = "startswith"
	In         Lookup = "in"
	Gt         Lookup = "gt"
	Gte        Lookup = "gte"
	Lt         Lookup = "lt"
	Lte        Lookup = "lte"
	IsNull     Lookup = "isnull"
)

const lookupSep = "__"

// Filter is one (field, lookup, value) predicate. Filters are AND-ed.
type Filter struct {
	Field  string
	Lookup Lookup
	Value  any
}

// F builds a filter explicitly.
func F(field string, lookup Lookup, value any) Filter {
	return Filter{Field: field, Lookup: lookup, Value: value}
}

// Eq is shorthand for an exact match.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Lookup: Exact, Value: value}
}

// Where parses the "field__lookup" form. A key without a suffix is an exact
// match. Unknown suffixes are kept as-is and rejected when compiled.
func Where(key string, value any) Filter {
	if i := strings.LastIndex(key, lookupSep); i > 0 {
		return Filter{Field: key[:i], Lookup: Lookup(key[i+len(lookupSep):]), Value: value}
	}
	return Filter{Field: key, Lookup: Exact, Value: value}
}

// Key renders the filter back into its keyword form.
func (f Filter) Key() string {
	if f.Lookup == "" || f.Lookup == Exact {
		return f.Field
	}
	return f.Field + lookupSep + string(f.Lookup)
}

func (f Filter) String() string {
	return fmt.Sprintf("%s=%v", f.Key(), f.Value)
}
