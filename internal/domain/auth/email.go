package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"unicode/utf16"
)

// RedactEmail keeps the first three characters of an address for audit logs.
func RedactEmail(email string) string {
	if email == "" {
		return "unknown"
	}
	r := []rune(email)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r) + "***"
}

// EmailHasher produces a correlation id for an email address that can be
// attached to responses and logs without exposing the raw address.
type EmailHasher struct {
	key []byte
}

// NewEmailHasher returns a hasher. With an empty key it falls back to the
// unsalted 32-bit string hash, which is pseudonymization only.
func NewEmailHasher(key string) EmailHasher {
	if key == "" {
		return EmailHasher{}
	}
	return EmailHasher{key: []byte(key)}
}

// Keyed reports whether the hasher uses a secret key.
func (h EmailHasher) Keyed() bool { return len(h.key) > 0 }

// Hash returns the correlation id for email.
func (h EmailHasher) Hash(email string) string {
	if len(h.key) == 0 {
		return StringHash(email)
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(email))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

// StringHash is the classic 31-multiplier hash over UTF-16 code units,
// truncated to a signed 32-bit integer and rendered as hex of its absolute value.
func StringHash(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}
