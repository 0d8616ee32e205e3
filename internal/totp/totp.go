// Package totp implements RFC 6238 time-based one-time passwords: secret
// generation, otpauth:// provisioning URIs, and verification with a
// configurable step tolerance for clock drift between the server and the
// authenticator app.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// secretBytes is 160 bits of entropy, the RFC 4226 recommended minimum.
const secretBytes = 20

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Config carries the code parameters embedded in provisioning URIs and used
// during verification. Zero values are normalized by [NewManager].
type Config struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	Skew      int
}

// Manager generates and verifies codes for a fixed configuration.
type Manager struct {
	config Config
}

// NewManager normalizes cfg and returns a Manager.
func NewManager(cfg Config) *Manager {
	if cfg.Digits <= 0 {
		cfg.Digits = 6
	}
	if cfg.Period <= 0 {
		cfg.Period = 30
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	if cfg.Skew < 0 {
		cfg.Skew = 0
	}
	return &Manager{config: cfg}
}

// GenerateSecret returns a fresh random secret as raw bytes plus its base32
// encoding for the authenticator app.
func (m *Manager) GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	return raw, b32.EncodeToString(raw), nil
}

// ProvisionURI builds the standard otpauth://totp/... URI consumable by any
// authenticator app.
func (m *Manager) ProvisionURI(secretBase32, account string) string {
	issuer := m.config.Issuer
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(m.config.Period))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("algorithm", strings.ToUpper(m.config.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify checks a submitted code against every step within ±Skew of the
// step containing now. It returns the matched counter so callers can
// enforce replay protection.
func (m *Manager) Verify(secret []byte, code string, now time.Time) (bool, int64, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isDigits(trimmed) {
		return false, 0, nil
	}
	if len(secret) == 0 {
		return false, 0, errors.New("totp: empty secret")
	}

	base := now.Unix() / int64(m.config.Period)
	for step := -m.config.Skew; step <= m.config.Skew; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := HOTP(secret, counter, m.config.Digits, m.config.Algorithm)
		if err != nil {
			return false, 0, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, counter, nil
		}
	}

	return false, 0, nil
}

// DecodeSecret parses a base32 secret as produced by [Manager.GenerateSecret].
func DecodeSecret(secretBase32 string) ([]byte, error) {
	return b32.DecodeString(strings.ToUpper(strings.TrimSpace(secretBase32)))
}

// HOTP computes the RFC 4226 truncated code for a single counter value.
func HOTP(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("totp: unsupported algorithm")
	}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
