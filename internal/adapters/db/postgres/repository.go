package postgres

import (
	"context"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/db/query"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/repo"
	"gorm.io/gorm"
)

// Repository is the generic gorm-backed repository. It is bound to one
// session and must not be shared across requests.
type Repository[T any] struct {
	store *query.Store[T]
}

func NewRepository[T any](db *gorm.DB, schema *query.Schema) *Repository[T] {
	return &Repository[T]{store: query.NewStore[T](db, schema)}
}

func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	return r.store.Create(ctx, entity)
}

func (r *Repository[T]) Get(ctx context.Context, filters ...filter.Filter) (*T, error) {
	return r.store.Get(ctx, filters...)
}

// List returns one page plus the total number of rows matching filters.
func (r *Repository[T]) List(ctx context.Context, page repo.Page, filters ...filter.Filter) (repo.Result[T], error) {
	q := r.store.Filter(filters...).OrderBy(page.OrderBy...).Skip(page.Skip)
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	return r.store.FilterAndCount(ctx, q)
}

func (r *Repository[T]) Count(ctx context.Context, filters ...filter.Filter) (int64, error) {
	return r.store.Count(ctx, filters...)
}

func (r *Repository[T]) Update(ctx context.Context, data map[string]any, filters ...filter.Filter) (int64, error) {
	return r.store.Update(ctx, data, filters...)
}

func (r *Repository[T]) Delete(ctx context.Context, filters ...filter.Filter) (int64, error) {
	return r.store.Delete(ctx, filters...)
}
