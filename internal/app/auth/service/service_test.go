package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/db/dbtest"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/db/postgres"
	redisadapter "github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/db/redis"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/password"
	appsvc "github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/service"
	authErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/filter"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/repo"
	"github.com/alexedwards/argon2id"
	"github.com/alicebob/miniredis/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const secret = "test-secret"

/* ───────────────────────────── helpers ───────────────────────────── */

type env struct {
	db    *gorm.DB
	codec *jwt.Codec
	auth  *appsvc.AuthService
	users *appsvc.UserService
}

func newEnv(t *testing.T, cache appsvc.Cache) env {
	t.Helper()
	db := dbtest.Open(t, &model.User{})
	codec, err := jwt.New(jwt.Config{Secret: secret, TTL: time.Minute})
	require.NoError(t, err)

	hasher := password.NewHasher("pepper", &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	f := appsvc.NewFactory(hasher, codec, cache, appsvc.AuthOptions{
		AccessTTL:   time.Minute,
		RefreshTTL:  time.Hour,
		AdminEmails: []string{"Root@Example.com"},
	}, nil)
	return env{db: db, codec: codec, auth: f.AuthService(db), users: f.UserService(db)}
}

func str(s string) *string { return &s }

func creds(email, phone, pass string) appsvc.Credentials {
	c := appsvc.Credentials{Password: pass}
	if email != "" {
		c.Email = str(email)
	}
	if phone != "" {
		c.Phone = str(phone)
	}
	return c
}

/* ───────────────────────────── register / login ───────────────────────────── */

func TestAuthService_RegisterThenLogin(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	u, err := e.auth.Register(ctx, creds("a@x.com", "", "abcd1234"))
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	require.NotEqual(t, "abcd1234", u.Password)
	require.False(t, u.IsAdmin)

	tok, err := e.auth.Login(ctx, creds("A@X.com", "", "abcd1234"))
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.NotEmpty(t, tok.RefreshToken)

	claims, err := e.codec.Decode(tok.AccessToken)
	require.NoError(t, err)
	id, ok := claims.UserID()
	require.True(t, ok)
	require.Equal(t, u.ID, id)

	rc, err := e.codec.Decode(tok.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, appsvc.RefreshSubject, rc.Subject())
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	_, err := e.auth.Register(ctx, creds("a@x.com", "+79123456789", "abcd1234"))
	require.NoError(t, err)

	for name, c := range map[string]appsvc.Credentials{
		"same email":            creds("a@x.com", "", "other123"),
		"email case":            creds("A@X.COM", "", "abcd1234"),
		"same phone":            creds("", "+79123456789", "zzzz9999"),
		"new email, same phone": creds("b@x.com", "+79123456789", "abcd1234"),
	} {
		_, err := e.auth.Register(ctx, c)
		require.Truef(t, authErrors.IsAlreadyExists(err), "%s: got %v", name, err)
		require.Truef(t, authErrors.IsBadRequest(err), "%s: got %v", name, err)
		require.Equal(t, authErrors.MsgAlreadyExists, err.Error())
	}
}

func TestAuthService_RegisterAdmin(t *testing.T) {
	e := newEnv(t, nil)
	u, err := e.auth.Register(context.Background(), creds("root@example.com", "", "abcd1234"))
	require.NoError(t, err)
	require.True(t, u.IsAdmin)
}

func TestAuthService_LoginEnumerationResistance(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	_, err := e.auth.Register(ctx, creds("", "+79123456789", "abcd1234"))
	require.NoError(t, err)

	_, wrongPass := e.auth.Login(ctx, creds("", "+79123456789", "abcd12345"))
	_, noUser := e.auth.Login(ctx, creds("", "+79000000000", "abcd1234"))
	_, noLogin := e.auth.Login(ctx, creds("", "", "abcd1234"))

	for _, err := range []error{wrongPass, noUser, noLogin} {
		require.True(t, authErrors.IsInvalidCredentials(err), "got %v", err)
		require.Equal(t, authErrors.MsgInvalidCredentials, err.Error())
	}
}

func TestAuthService_LoginMissCostsAHashCheck(t *testing.T) {
	db := dbtest.Open(t, &model.User{})
	codec, err := jwt.New(jwt.Config{Secret: secret, TTL: time.Minute})
	require.NoError(t, err)
	hasher := password.NewHasher("pepper", &argon2id.Params{Memory: 32 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	svc := appsvc.NewAuthService(postgres.NewUserRepository(db), hasher, codec, appsvc.AuthOptions{AccessTTL: time.Minute, RefreshTTL: time.Hour}, nil)
	ctx := context.Background()

	_, err = svc.Register(ctx, creds("a@x.com", "", "abcd1234"))
	require.NoError(t, err)
	hasher.Decoy()

	fastest := func(cred appsvc.Credentials) time.Duration {
		best := time.Duration(1<<63 - 1)
		for range 3 {
			start := time.Now()
			_, err := svc.Login(ctx, cred)
			require.True(t, authErrors.IsInvalidCredentials(err), "got %v", err)
			best = min(best, time.Since(start))
		}
		return best
	}
	wrong := fastest(creds("a@x.com", "", "abcd12345"))
	missing := fastest(creds("nobody@x.com", "", "abcd1234"))
	require.GreaterOrEqual(t, 4*missing, wrong, "unknown login answered in %v, wrong password in %v", missing, wrong)
}

func TestAuthService_LoginEmailWinsOverPhone(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	_, err := e.auth.Register(ctx, creds("", "+79123456789", "abcd1234"))
	require.NoError(t, err)

	// an unknown email is not retried with the phone
	_, err = e.auth.Login(ctx, creds("nobody@x.com", "+79123456789", "abcd1234"))
	require.True(t, authErrors.IsInvalidCredentials(err))
}

func TestAuthService_LoginUpgradesLegacyHash(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("abcd1234"), bcrypt.MinCost)
	require.NoError(t, err)
	r := postgres.NewUserRepository(e.db)
	u := &model.User{Email: str("old@x.com"), Password: string(legacy)}
	require.NoError(t, r.Create(ctx, u))

	_, err = e.auth.Login(ctx, creds("old@x.com", "", "abcd1234"))
	require.NoError(t, err)

	stored, err := r.Get(ctx, filter.Eq("id", u.ID))
	require.NoError(t, err)
	require.NotEqual(t, string(legacy), stored.Password)

	_, err = e.auth.Login(ctx, creds("old@x.com", "", "abcd1234"))
	require.NoError(t, err)
}

/* ───────────────────────────── refresh ───────────────────────────── */

func expiredAccess(t *testing.T, userID int64) string {
	past := time.Now().Add(-2 * time.Hour)
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"user_id": userID,
		"iat":     past.Unix(),
		"exp":     past.Add(time.Minute).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestAuthService_Refresh(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u, err := e.auth.Register(ctx, creds("a@x.com", "", "abcd1234"))
	require.NoError(t, err)
	pair, err := e.auth.Login(ctx, creds("a@x.com", "", "abcd1234"))
	require.NoError(t, err)

	next, err := e.auth.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := e.codec.Decode(next.AccessToken)
	require.NoError(t, err)
	id, _ := claims.UserID()
	require.Equal(t, u.ID, id)

	// refresh outlives the access token
	_, err = e.auth.Refresh(ctx, expiredAccess(t, u.ID), pair.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_RefreshRejects(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	a, err := e.auth.Register(ctx, creds("a@x.com", "", "abcd1234"))
	require.NoError(t, err)
	_, err = e.auth.Register(ctx, creds("b@x.com", "", "abcd1234"))
	require.NoError(t, err)
	pa, _ := e.auth.Login(ctx, creds("a@x.com", "", "abcd1234"))
	pb, _ := e.auth.Login(ctx, creds("b@x.com", "", "abcd1234"))

	cases := map[string][2]string{
		"access as refresh":   {pa.AccessToken, pa.AccessToken},
		"refresh as access":   {pa.RefreshToken, pa.RefreshToken},
		"mismatched users":    {pb.AccessToken, pa.RefreshToken},
		"garbage refresh":     {pa.AccessToken, "garbage"},
		"garbage access":      {"garbage", pa.RefreshToken},
		"foreign refresh sig": {pa.AccessToken, pa.RefreshToken[:len(pa.RefreshToken)-2] + "xx"},
	}
	for name, c := range cases {
		_, err := e.auth.Refresh(ctx, c[0], c[1])
		require.Truef(t, authErrors.IsUnauthorized(err), "%s: got %v", name, err)
	}

	_, err = e.users.Delete(ctx, filter.Eq("id", a.ID))
	require.NoError(t, err)
	_, err = e.auth.Refresh(ctx, pa.AccessToken, pa.RefreshToken)
	require.True(t, authErrors.IsUnauthorized(err), "deleted user must not refresh, got %v", err)
}

/* ───────────────────────────── user service ───────────────────────────── */

func TestUserService_GetByIDAndUUID(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u, err := e.auth.Register(ctx, creds("a@x.com", "", "abcd1234"))
	require.NoError(t, err)

	got, err := e.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)

	got, err = e.users.GetByUUID(ctx, u.UUID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = e.users.GetByID(ctx, 999)
	require.True(t, authErrors.IsNotFound(err))
	require.Equal(t, "User with id: 999 does not exist", err.Error())
}

func TestUserService_GetAll(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	for _, email := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		_, err := e.auth.Register(ctx, creds(email, "", "abcd1234"))
		require.NoError(t, err)
	}

	res, err := e.users.GetAll(ctx, repo.Page{Limit: 2, OrderBy: []string{"-email"}})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Count)
	require.Len(t, res.Items, 2)
	require.Equal(t, "c@x.com", *res.Items[0].Email)

	res, err = e.users.GetAll(ctx, repo.Page{}, filter.Where("email__startswith", "b"))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	_, err = e.users.GetAll(ctx, repo.Page{}, filter.Where("nickname", "x"))
	require.True(t, authErrors.IsInvalidFilter(err))
}

func TestUserService_CacheAside(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := redisadapter.NewCache(client, "test", time.Minute)

	e := newEnv(t, cache)
	ctx := context.Background()
	u, err := e.auth.Register(ctx, creds("a@x.com", "", "abcd1234"))
	require.NoError(t, err)

	_, err = e.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	key := cache.Key("User", u.ID)
	raw, err := mr.Get(key)
	require.NoError(t, err)
	require.NotContains(t, raw, "argon2id")

	// served from cache even though the row changed underneath
	require.NoError(t, e.db.Model(&model.User{}).Where("id = ?", u.ID).Update("is_admin", true).Error)
	cached, err := e.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, cached.IsAdmin)
	require.Empty(t, cached.Password)

	n, err := e.users.Delete(ctx, filter.Eq("id", u.ID))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.False(t, mr.Exists(key))

	_, err = e.users.GetByID(ctx, u.ID)
	require.True(t, authErrors.IsNotFound(err))
}

func TestUserService_CacheFailureFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	e := newEnv(t, redisadapter.NewCache(client, "test", time.Minute))
	ctx := context.Background()
	u, err := e.auth.Register(ctx, creds("a@x.com", "", "abcd1234"))
	require.NoError(t, err)

	got, err := e.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestNopCache_NeverHits(t *testing.T) {
	var c appsvc.Cache = appsvc.NopCache{}
	require.Empty(t, c.Key("user", 1))
	require.NoError(t, c.Set(t.Context(), "k", 1))

	var dst int
	hit, err := c.Get(t.Context(), "k", &dst)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, c.Delete(t.Context(), "k"))
}
