package service

import (
	"context"
	"errors"
	"fmt"

	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/repo"
	"github.com/google/uuid"
)

// BaseService holds the operations every entity service shares.
type BaseService[T any] struct {
	name string
	repo repo.Repository[T]
}

func NewBaseService[T any](name string, r repo.Repository[T]) *BaseService[T] {
	return &BaseService[T]{name: name, repo: r}
}

func (s *BaseService[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	return s.getBy(ctx, "id", id)
}

func (s *BaseService[T]) GetByUUID(ctx context.Context, id uuid.UUID) (*T, error) {
	return s.getBy(ctx, "uuid", id)
}

func (s *BaseService[T]) getBy(ctx context.Context, field string, value any) (*T, error) {
	entity, err := s.repo.Get(ctx, filter.Eq(field, value))
	if err != nil {
		return nil, customErrors.WrapStorage(err, "get "+s.name)
	}
	if entity == nil {
		return nil, customErrors.NewNotFound(fmt.Sprintf("%s with %s: %v does not exist", s.name, field, value))
	}
	return entity, nil
}

func (s *BaseService[T]) GetAll(ctx context.Context, page repo.Page, filters ...filter.Filter) (repo.Result[T], error) {
	res, err := s.repo.List(ctx, page, filters...)
	if err != nil {
		return repo.Result[T]{}, customErrors.WrapStorage(err, "list "+s.name)
	}
	return res, nil
}

func (s *BaseService[T]) Create(ctx context.Context, entity *T) error {
	err := s.repo.Create(ctx, entity)
	if errors.Is(err, repo.ErrDuplicate) {
		return customErrors.NewBadRequest(s.name + " already exists")
	}
	return customErrors.WrapStorage(err, "create "+s.name)
}

func (s *BaseService[T]) Delete(ctx context.Context, filters ...filter.Filter) (int64, error) {
	n, err := s.repo.Delete(ctx, filters...)
	if err != nil {
		return 0, customErrors.WrapStorage(err, "delete "+s.name)
	}
	return n, nil
}
