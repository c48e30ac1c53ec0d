package password

import (
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

var DefaultParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher hashes new passwords with argon2id. Verify also accepts bcrypt
// hashes imported from the previous account store; those carry no pepper.
type Hasher struct {
	params *argon2id.Params
	pepper string

	decoyOnce sync.Once
	decoy     string
}

func NewHasher(pepper string, params *argon2id.Params) *Hasher {
	if params == nil {
		params = DefaultParams
	}
	return &Hasher{params: params, pepper: pepper}
}

func (h *Hasher) Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain+h.pepper, h.params)
}

// Verify never fails on a malformed stored hash, it just reports false.
func (h *Hasher) Verify(hash, plain string) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	}
	ok, err := argon2id.ComparePasswordAndHash(plain+h.pepper, hash)
	return err == nil && ok
}

// Decoy is a fixed hash made with the hasher's parameters. Checking a
// password against it costs as much as checking a real one, so callers use
// it when no stored hash exists.
func (h *Hasher) Decoy() string {
	h.decoyOnce.Do(func() {
		h.decoy, _ = h.Hash("decoy-password-never-issued")
	})
	return h.decoy
}

// NeedsRehash reports whether hash should be replaced after a successful
// Verify.
func (h *Hasher) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	params, _, _, err := argon2id.DecodeHash(hash)
	if err != nil {
		return true
	}
	return params.Memory != h.params.Memory ||
		params.Iterations != h.params.Iterations ||
		params.Parallelism != h.params.Parallelism
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
