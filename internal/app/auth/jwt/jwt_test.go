package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/golang-jwt/jwt/v5"
)

func testConfig() Config {
	return Config{
		Secret:   "test-secret",
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Minute,
	}
}

func newCodec(t *testing.T, cfg Config) *Codec {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCodec_EncodeDecode(t *testing.T) {
	c := newCodec(t, testConfig())
	token, err := c.Encode(map[string]any{"user_id": int64(42), "sub": "refresh_token"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := c.Decode(token)
	if err != nil {
		t.Fatal(err)
	}
	if id, ok := claims.UserID(); !ok || id != 42 {
		t.Fatalf("want user_id 42 got %v", claims["user_id"])
	}
	if claims.Subject() != "refresh_token" {
		t.Fatalf("want sub refresh_token got %q", claims.Subject())
	}
	if _, ok := claims["exp"]; ok {
		t.Fatal("registered claims should be stripped")
	}
	if len(claims) != 2 {
		t.Fatalf("unexpected claims %v", claims)
	}
}

func TestCodec_Expired(t *testing.T) {
	c := newCodec(t, testConfig())
	c.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := c.Encode(map[string]any{"user_id": 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	c.now = time.Now

	if _, err := c.Decode(token); !errors.IsTokenExpired(err) {
		t.Fatalf("expected expired, got %v", err)
	}
	claims, err := c.DecodeIgnoringExpiry(token)
	if err != nil {
		t.Fatalf("expiry should be ignored: %v", err)
	}
	if id, _ := claims.UserID(); id != 1 {
		t.Fatalf("want user_id 1 got %v", claims["user_id"])
	}
}

func TestCodec_Tampered(t *testing.T) {
	c := newCodec(t, testConfig())
	token, _ := c.Encode(map[string]any{"user_id": 1}, 0)

	parts := strings.Split(token, ".")
	other, _ := c.Encode(map[string]any{"user_id": 2}, 0)
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	for _, raw := range []string{"bad", "", forged, token + "x"} {
		if _, err := c.Decode(raw); !errors.IsInvalidToken(err) {
			t.Fatalf("decode(%q): expected invalid token, got %v", raw, err)
		}
		if _, err := c.DecodeIgnoringExpiry(raw); !errors.IsInvalidToken(err) {
			t.Fatalf("decodeIgnoringExpiry(%q): expected invalid token, got %v", raw, err)
		}
	}
}

func TestCodec_WrongSecret(t *testing.T) {
	c := newCodec(t, testConfig())
	cfg := testConfig()
	cfg.Secret = "other"
	token, _ := newCodec(t, cfg).Encode(map[string]any{"user_id": 1}, 0)
	if _, err := c.Decode(token); !errors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestCodec_InvalidAlg(t *testing.T) {
	c := newCodec(t, testConfig())
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"user_id": 1, "iss": "test", "aud": "test"}).SignedString([]byte("test-secret"))
	if _, err := c.Decode(token); err == nil {
		t.Fatal("expected invalid alg")
	}
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := c.DecodeIgnoringExpiry(none); err == nil {
		t.Fatal("expected alg none to be rejected")
	}
}

func TestCodec_InvalidIssuerAndAudience(t *testing.T) {
	c := newCodec(t, testConfig())

	cfg := testConfig()
	cfg.Issuer = "wrong"
	tok, _ := newCodec(t, cfg).Encode(map[string]any{"user_id": 1}, 0)
	if _, err := c.Decode(tok); err == nil {
		t.Fatal("expected issuer error")
	}
	if _, err := c.DecodeIgnoringExpiry(tok); err == nil {
		t.Fatal("expected issuer error when expiry is ignored")
	}

	cfg = testConfig()
	cfg.Audience = "other"
	tok, _ = newCodec(t, cfg).Encode(map[string]any{"user_id": 1}, 0)
	if _, err := c.Decode(tok); err == nil {
		t.Fatal("expected audience error")
	}
	if _, err := c.DecodeIgnoringExpiry(tok); err == nil {
		t.Fatal("expected audience error when expiry is ignored")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected empty secret error")
	}
	if _, err := New(Config{Secret: "s", Algorithm: "RS256"}); err == nil {
		t.Fatal("expected unsupported algorithm error")
	}
}
