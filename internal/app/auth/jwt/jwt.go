package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/golang-jwt/jwt/v5"
)

const leeway = 30 * time.Second

// Claims is a decoded token payload without the registered claims the codec
// adds itself.
type Claims map[string]any

func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// UserID reads the "user_id" claim, which JSON decoding may have turned into
// a float or a json.Number.
func (c Claims) UserID() (int64, bool) {
	switch v := c["user_id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

type Config struct {
	Secret    string
	Algorithm string
	Issuer    string
	Audience  string
	TTL       time.Duration
}

// Codec signs and verifies HMAC tokens with a process-wide secret.
type Codec struct {
	key      []byte
	method   jwt.SigningMethod
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func New(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: empty secret")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("jwt: unsupported algorithm %q", alg)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Codec{
		key:      []byte(cfg.Secret),
		method:   method,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Encode signs payload with exp/iat (and iss/aud when configured) added.
// A non-positive ttl uses the codec default.
func (c *Codec) Encode(payload map[string]any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()
	claims := jwt.MapClaims{}
	maps.Copy(claims, payload)
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	if c.issuer != "" {
		claims["iss"] = c.issuer
	}
	if c.audience != "" {
		claims["aud"] = c.audience
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		return "", customErrors.WrapInternal(err, "sign token")
	}
	return signed, nil
}

// Decode verifies signature, expiry, issuer and audience.
func (c *Codec) Decode(raw string) (Claims, error) {
	return c.decode(raw, false)
}

// DecodeIgnoringExpiry verifies everything Decode does except expiry.
func (c *Codec) DecodeIgnoringExpiry(raw string) (Claims, error) {
	return c.decode(raw, true)
}

func (c *Codec) decode(raw string, skipExpiry bool) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(c.now),
		jwt.WithJSONNumber(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}
	if skipExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := jwt.MapClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, customErrors.NewTokenExpired()
	case err != nil || !token.Valid:
		return nil, customErrors.NewInvalidToken("Invalid token")
	}

	if skipExpiry {
		// claims validation was switched off wholesale, so re-check the rest
		if c.issuer != "" && claims["iss"] != c.issuer {
			return nil, customErrors.NewInvalidToken("Invalid token")
		}
		if c.audience != "" {
			aud, _ := claims.GetAudience()
			if !containsAudience(aud, c.audience) {
				return nil, customErrors.NewInvalidToken("Invalid token")
			}
		}
	}

	out := make(Claims, len(claims))
	for k, v := range claims {
		switch k {
		case "exp", "iat", "iss", "aud":
			continue
		}
		out[k] = v
	}
	return out, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
