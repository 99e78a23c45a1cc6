package farm

import (
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/bcrypt"
)

// Hasher derives and checks credential digests.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) bool
}

// BcryptHasher stores salted bcrypt digests.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Verify(digest, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

func (BcryptHasher) producesBcrypt() {}

// bcryptProducer is satisfied by BcryptHasher and *BcryptHasher.
type bcryptProducer interface{ producesBcrypt() }

// LegacyHasher reproduces the browser demo's checksum so that accounts
// imported from local storage keep working. It is not a password hash.
type LegacyHasher struct{}

func (LegacyHasher) Hash(password string) (string, error) {
	return LegacyDigest(password), nil
}

func (LegacyHasher) Verify(digest, password string) bool {
	return digest == LegacyDigest(password)
}

// LegacyDigest is h = h*31 + c over the UTF-16 code units of password with
// 32-bit wrap-around, rendered as |h| in lowercase hex.
func LegacyDigest(password string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(password)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}

// isBcrypt reports whether digest looks like a bcrypt hash ($2a$, $2b$, $2y$).
func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2")
}

// verifyDigest checks password against whichever kind of digest is stored.
func verifyDigest(digest, password string) bool {
	if isBcrypt(digest) {
		return BcryptHasher{}.Verify(digest, password)
	}
	return LegacyHasher{}.Verify(digest, password)
}
