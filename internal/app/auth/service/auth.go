package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/password"
	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/repo"
	"go.uber.org/zap"
)

// RefreshSubject marks a token as a refresh token.
const RefreshSubject = "refresh_token"

// Credentials identify a user by email or, failing that, by phone.
type Credentials struct {
	Email    *string
	Phone    *string
	Password string
}

func (c Credentials) email() string {
	if c.Email == nil {
		return ""
	}
	return strings.TrimSpace(*c.Email)
}

func (c Credentials) phone() string {
	if c.Phone == nil {
		return ""
	}
	return strings.TrimSpace(*c.Phone)
}

// Digest is a log-safe fingerprint of the login identifier.
func (c Credentials) Digest() string {
	id := strings.ToLower(c.email())
	if id == "" {
		id = c.phone()
	}
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}

type AuthService struct {
	*BaseService[model.User]
	users      repo.UserRepo
	hasher     *password.Hasher
	codec      *jwt.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	admins     map[string]struct{}
	log        *zap.Logger
}

type AuthOptions struct {
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	AdminEmails []string
}

func NewAuthService(users repo.UserRepo, hasher *password.Hasher, codec *jwt.Codec, opts AuthOptions, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	admins := make(map[string]struct{}, len(opts.AdminEmails))
	for _, e := range opts.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &AuthService{
		BaseService: NewBaseService[model.User](userEntity, users),
		users:       users,
		hasher:      hasher,
		codec:       codec,
		accessTTL:   opts.AccessTTL,
		refreshTTL:  opts.RefreshTTL,
		admins:      admins,
		log:         log,
	}
}

// lookup finds the user by email, or by phone when no email was given.
// With both given and checkPhone set, phone is tried after an email miss.
func (s *AuthService) lookup(ctx context.Context, cred Credentials, checkPhone bool) (*model.User, error) {
	var (
		u   *model.User
		err error
	)
	if email := cred.email(); email != "" {
		if u, err = s.users.GetByEmail(ctx, email); err != nil || u != nil || !checkPhone {
			return u, err
		}
	}
	if phone := cred.phone(); phone != "" {
		return s.users.GetByPhone(ctx, phone)
	}
	return u, nil
}

// Register creates a user unless one already owns the email or phone.
func (s *AuthService) Register(ctx context.Context, cred Credentials) (*model.User, error) {
	existing, err := s.lookup(ctx, cred, true)
	if err != nil {
		return nil, customErrors.WrapStorage(err, "Register")
	}
	if existing != nil {
		return nil, customErrors.NewAlreadyExists()
	}

	hash, err := s.hasher.Hash(cred.Password)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "Register")
	}

	user := &model.User{Password: hash}
	if email := cred.email(); email != "" {
		user.Email = &email
		_, user.IsAdmin = s.admins[strings.ToLower(email)]
	}
	if phone := cred.phone(); phone != "" {
		user.Phone = &phone
	}
	if err := s.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.Bool("is_admin", user.IsAdmin))
	return user, nil
}

// Login never tells "no such user" apart from "wrong password".
func (s *AuthService) Login(ctx context.Context, cred Credentials) (model.Token, error) {
	user, err := s.lookup(ctx, cred, false)
	if err != nil {
		return model.Token{}, customErrors.WrapStorage(err, "Login")
	}
	stored := s.hasher.Decoy()
	if user != nil {
		stored = user.Password
	}
	if !s.hasher.Verify(stored, cred.Password) || user == nil {
		s.log.Info("login rejected", zap.String("login", cred.Digest()))
		return model.Token{}, customErrors.NewInvalidCredentials()
	}

	if s.hasher.NeedsRehash(user.Password) {
		s.rehash(ctx, user, cred.Password)
	}
	return s.mint(user.ID)
}

func (s *AuthService) rehash(ctx context.Context, user *model.User, plain string) {
	hash, err := s.hasher.Hash(plain)
	if err == nil {
		_, err = s.users.Update(ctx, map[string]any{"password": hash}, filter.Eq("id", user.ID))
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}

// Refresh trades a refresh token for a new pair. The refresh token must be
// valid; the access token only needs a good signature and, when it names a
// user, the same user as the refresh token.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (model.Token, error) {
	rc, err := s.codec.Decode(refreshToken)
	if err != nil {
		return model.Token{}, err
	}
	userID, ok := rc.UserID()
	if rc.Subject() != RefreshSubject || !ok {
		return model.Token{}, customErrors.NewInvalidToken("Invalid refresh token")
	}

	ac, err := s.codec.DecodeIgnoringExpiry(accessToken)
	if err != nil {
		return model.Token{}, err
	}
	if ac.Subject() == RefreshSubject {
		return model.Token{}, customErrors.NewInvalidToken("Invalid access token")
	}
	if id, ok := ac.UserID(); ok && id != userID {
		return model.Token{}, customErrors.NewInvalidToken("Invalid refresh token")
	}

	user, err := s.users.Get(ctx, filter.Eq("id", userID))
	if err != nil {
		return model.Token{}, customErrors.WrapStorage(err, "Refresh")
	}
	if user == nil {
		return model.Token{}, customErrors.NewInvalidToken("Invalid refresh token")
	}
	return s.mint(user.ID)
}

func (s *AuthService) mint(userID int64) (model.Token, error) {
	access, err := s.codec.Encode(map[string]any{"user_id": userID}, s.accessTTL)
	if err != nil {
		return model.Token{}, err
	}
	refresh, err := s.codec.Encode(map[string]any{"sub": RefreshSubject, "user_id": userID}, s.refreshTTL)
	if err != nil {
		return model.Token{}, err
	}
	return model.Token{AccessToken: access, RefreshToken: refresh}, nil
}
