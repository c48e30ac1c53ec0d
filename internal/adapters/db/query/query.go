package query

import (
	"context"
	"fmt"
	"slices"
	"strings"

	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Query describes a selection without running it. Every builder method
// returns a copy, so one Query can back both a page fetch and a count.
type Query[T any] struct {
	db      *gorm.DB
	schema  *Schema
	filters []filter.Filter
	order   []string
	skip    int
	limit   int
	limited bool
}

func newQuery[T any](db *gorm.DB, schema *Schema, filters []filter.Filter) *Query[T] {
	return &Query[T]{db: db, schema: schema, filters: slices.Clone(filters)}
}

func (q *Query[T]) clone() *Query[T] {
	cp := *q
	cp.filters = slices.Clone(q.filters)
	cp.order = slices.Clone(q.order)
	return &cp
}

// Filter narrows the query with more AND-ed predicates.
func (q *Query[T]) Filter(filters ...filter.Filter) *Query[T] {
	cp := q.clone()
	cp.filters = append(cp.filters, filters...)
	return cp
}

// OrderBy sorts ascending by field; a leading "-" sorts descending.
func (q *Query[T]) OrderBy(fields ...string) *Query[T] {
	cp := q.clone()
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			cp.order = append(cp.order, f)
		}
	}
	return cp
}

func (q *Query[T]) Skip(n int) *Query[T] {
	cp := q.clone()
	cp.skip = max(n, 0)
	return cp
}

func (q *Query[T]) Limit(n int) *Query[T] {
	cp := q.clone()
	cp.limit = max(n, 0)
	cp.limited = true
	return cp
}

func (q *Query[T]) where(ctx context.Context) (*gorm.DB, error) {
	conds, err := q.schema.Compile(q.filters)
	if err != nil {
		return nil, err
	}
	tx := q.db.WithContext(ctx).Model(new(T))
	for _, c := range conds {
		tx = tx.Where(c.SQL, c.Args...)
	}
	return tx, nil
}

func (q *Query[T]) paginate(tx *gorm.DB) (*gorm.DB, error) {
	for _, f := range q.order {
		desc := strings.HasPrefix(f, "-")
		col, err := q.schema.Column(strings.TrimPrefix(f, "-"))
		if err != nil {
			return nil, err
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc})
	}
	if q.skip > 0 {
		tx = tx.Offset(q.skip)
	}
	if q.limited {
		tx = tx.Limit(q.limit)
	}
	return tx, nil
}

func (q *Query[T]) selection(ctx context.Context) (*gorm.DB, error) {
	tx, err := q.where(ctx)
	if err != nil {
		return nil, err
	}
	return q.paginate(tx)
}

// Execute runs the query and returns every matching row.
func (q *Query[T]) Execute(ctx context.Context) ([]T, error) {
	out := make([]T, 0)
	if q.limited && q.limit == 0 {
		return out, nil
	}
	tx, err := q.selection(ctx)
	if err != nil {
		return nil, err
	}
	if err := tx.Find(&out).Error; err != nil {
		return nil, translate(err, "select "+q.schema.Name)
	}
	return out, nil
}

// First returns the first matching row, or nil when nothing matches.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	rows, err := q.Limit(1).Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Count returns the number of rows matching the filters. Ordering and
// pagination are ignored.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	tx, err := q.where(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, translate(err, "count "+q.schema.Name)
	}
	return n, nil
}

func (q *Query[T]) columns(data map[string]any) (map[string]any, error) {
	if len(data) == 0 {
		return nil, customErrors.NewInvalidFilter("update data is empty")
	}
	out := make(map[string]any, len(data))
	for field, v := range data {
		if field == q.schema.PrimaryKey {
			return nil, customErrors.NewInvalidFilter(fmt.Sprintf("%s.%s is immutable", q.schema.Name, field))
		}
		col, err := q.schema.Column(field)
		if err != nil {
			return nil, err
		}
		out[col] = v
	}
	return out, nil
}

func (q *Query[T]) paginated() bool {
	return q.skip > 0 || q.limited
}

// target narrows writes to the selected page through a primary key sub-select
// when skip or limit are set, since UPDATE/DELETE cannot paginate portably.
func (q *Query[T]) target(ctx context.Context) (*gorm.DB, error) {
	if len(q.filters) == 0 && !q.paginated() {
		return nil, customErrors.NewInvalidFilter(fmt.Sprintf("refusing to write every %s row without filters", q.schema.Name))
	}
	if !q.paginated() {
		return q.where(ctx)
	}
	sub, err := q.selection(ctx)
	if err != nil {
		return nil, err
	}
	sub = sub.Select(q.schema.PrimaryKey)
	return q.db.WithContext(ctx).Model(new(T)).Where(q.schema.PrimaryKey+" IN (?)", sub), nil
}

// Update applies data (field -> value) to every selected row.
func (q *Query[T]) Update(ctx context.Context, data map[string]any) (int64, error) {
	cols, err := q.columns(data)
	if err != nil {
		return 0, err
	}
	tx, err := q.target(ctx)
	if err != nil {
		return 0, err
	}
	res := tx.Updates(cols)
	if res.Error != nil {
		return 0, translate(res.Error, "update "+q.schema.Name)
	}
	return res.RowsAffected, nil
}

// Delete removes every selected row.
func (q *Query[T]) Delete(ctx context.Context) (int64, error) {
	tx, err := q.target(ctx)
	if err != nil {
		return 0, err
	}
	res := tx.Delete(new(T))
	if res.Error != nil {
		return 0, translate(res.Error, "delete "+q.schema.Name)
	}
	return res.RowsAffected, nil
}
