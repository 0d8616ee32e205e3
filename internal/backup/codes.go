// Package backup generates and matches one-time recovery codes. Codes are
// fixed-length uppercase hex drawn from crypto/rand; the caller owns
// encryption and persistence of the stored set.
package backup

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Generate returns count fresh codes, each length uppercase hex characters.
func Generate(count, length int) ([]string, error) {
	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := New(length)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// New returns a single code of length uppercase hex characters.
func New(length int) (string, error) {
	raw := make([]byte, (length+1)/2)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(raw))[:length], nil
}

// Canonicalize uppercases the submitted code and strips every
// non-alphanumeric character, so "ab12-cd34" and "AB12CD34" compare equal.
func Canonicalize(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		case (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Match scans the decrypted stored codes for an exact match against the
// canonicalized submission. Every candidate is compared in constant time;
// no prefix or partial matching. Returns the matched index.
func Match(stored []string, submitted string) (int, bool) {
	canonical := Canonicalize(submitted)
	if canonical == "" {
		return -1, false
	}

	matched := -1
	for i, code := range stored {
		if len(code) == len(canonical) &&
			subtle.ConstantTimeCompare([]byte(code), []byte(canonical)) == 1 &&
			matched == -1 {
			matched = i
		}
	}
	if matched == -1 {
		return -1, false
	}
	return matched, true
}
