package repo

import (
	"context"
	"errors"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/model"
)

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// Page selects a window of a listing. Limit 0 means no limit.
type Page struct {
	Skip    int
	Limit   int
	OrderBy []string
}

// Result is one page of rows plus the total matching the same filters.
type Result[T any] struct {
	Items []T
	Count int64
}

// Repository is the generic CRUD surface services build on.
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	Get(ctx context.Context, filters ...filter.Filter) (*T, error)
	List(ctx context.Context, page Page, filters ...filter.Filter) (Result[T], error)
	Count(ctx context.Context, filters ...filter.Filter) (int64, error)
	Update(ctx context.Context, data map[string]any, filters ...filter.Filter) (int64, error)
	Delete(ctx context.Context, filters ...filter.Filter) (int64, error)
}

type UserRepo interface {
	Repository[model.User]
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
}
