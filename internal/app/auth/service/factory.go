package service

import (
	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/db/postgres"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/password"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Factory holds the process-wide collaborators and builds session-bound
// repositories and services on demand, one set per request.
type Factory struct {
	hasher *password.Hasher
	codec  *jwt.Codec
	cache  Cache
	opts   AuthOptions
	log    *zap.Logger
}

func NewFactory(hasher *password.Hasher, codec *jwt.Codec, cache Cache, opts AuthOptions, log *zap.Logger) *Factory {
	if cache == nil {
		cache = NopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Factory{hasher: hasher, codec: codec, cache: cache, opts: opts, log: log}
}

func (f *Factory) Codec() *jwt.Codec {
	return f.codec
}

func (f *Factory) UserRepository(db *gorm.DB) repo.UserRepo {
	return postgres.NewUserRepository(db)
}

func (f *Factory) UserService(db *gorm.DB) *UserService {
	return NewUserService(f.UserRepository(db), f.cache, f.log.Named("user"))
}

func (f *Factory) AuthService(db *gorm.DB) *AuthService {
	return NewAuthService(f.UserRepository(db), f.hasher, f.codec, f.opts, f.log.Named("auth"))
}
