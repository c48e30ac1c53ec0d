package service

import (
	"context"

	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/repo"
	"go.uber.org/zap"
)

const userEntity = "User"

type UserService struct {
	*BaseService[model.User]
	users repo.UserRepo
	cache Cache
	log   *zap.Logger
}

func NewUserService(users repo.UserRepo, cache Cache, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	if cache == nil {
		cache = NopCache{}
	}
	return &UserService{
		BaseService: NewBaseService[model.User](userEntity, users),
		users:       users,
		cache:       cache,
		log:         log,
	}
}

// GetByID reads through the cache. Cached users carry no password hash.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	key := s.cache.Key(userEntity, id)

	var cached model.User
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	u, err := s.BaseService.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, u); err != nil {
		s.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return u, nil
}

// Delete removes matching users and evicts them from the cache.
func (s *UserService) Delete(ctx context.Context, filters ...filter.Filter) (int64, error) {
	victims, err := s.users.List(ctx, repo.Page{}, filters...)
	if err != nil {
		return 0, customErrors.WrapStorage(err, "delete "+userEntity)
	}
	n, err := s.BaseService.Delete(ctx, filters...)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(victims.Items))
	for _, u := range victims.Items {
		keys = append(keys, s.cache.Key(userEntity, u.ID))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
	return n, nil
}
