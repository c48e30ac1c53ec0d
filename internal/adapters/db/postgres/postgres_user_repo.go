package postgres

import (
	"context"
	"errors"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/db/query"
	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/repo"
	"gorm.io/gorm"
)

// UserSchema lists the user fields that may be filtered, ordered or updated.
var UserSchema = query.NewSchema("User", "users", "id",
	"uuid", "email", "phone", "password", "is_admin", "created_at", "updated_at",
).RestrictLookups("password", filter.Exact)

type UserRepository struct {
	*Repository[model.User]
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{Repository: NewRepository[model.User](db, UserSchema)}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.Repository.Create(ctx, user)
	if errors.Is(err, repo.ErrDuplicate) {
		return customErrors.NewAlreadyExists()
	}
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.Get(ctx, filter.Where("email__iexact", email))
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.Get(ctx, filter.Where("phone__iexact", phone))
}
