package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/repo"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// Store executes queries for one entity type against an explicit session.
// A Store never outlives the session it was built with.
type Store[T any] struct {
	db     *gorm.DB
	schema *Schema
}

func NewStore[T any](db *gorm.DB, schema *Schema) *Store[T] {
	return &Store[T]{db: db, schema: schema}
}

// Create inserts entity and fills generated columns back into it.
func (s *Store[T]) Create(ctx context.Context, entity *T) error {
	if err := s.db.WithContext(ctx).Create(entity).Error; err != nil {
		return translate(err, "insert "+s.schema.Name)
	}
	return nil
}

// Get returns the first row matching all filters, or nil.
func (s *Store[T]) Get(ctx context.Context, filters ...filter.Filter) (*T, error) {
	return s.Filter(filters...).First(ctx)
}

// Filter starts a lazy query.
func (s *Store[T]) Filter(filters ...filter.Filter) *Query[T] {
	return newQuery[T](s.db, s.schema, filters)
}

func (s *Store[T]) Update(ctx context.Context, data map[string]any, filters ...filter.Filter) (int64, error) {
	return s.Filter(filters...).Update(ctx, data)
}

func (s *Store[T]) Delete(ctx context.Context, filters ...filter.Filter) (int64, error) {
	return s.Filter(filters...).Delete(ctx)
}

func (s *Store[T]) Count(ctx context.Context, filters ...filter.Filter) (int64, error) {
	return s.Filter(filters...).Count(ctx)
}

// FilterAndCount runs q for its page and counts the unpaginated total.
func (s *Store[T]) FilterAndCount(ctx context.Context, q *Query[T]) (repo.Result[T], error) {
	items, err := q.Execute(ctx)
	if err != nil {
		return repo.Result[T]{}, err
	}
	n, err := q.Count(ctx)
	if err != nil {
		return repo.Result[T]{}, err
	}
	return repo.Result[T]{Items: items, Count: n}, nil
}

func translate(err error, op string) error {
	if isDuplicate(err) {
		return fmt.Errorf("%s: %w", op, errors.Join(repo.ErrDuplicate, err))
	}
	return customErrors.WrapStorage(err, op)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
