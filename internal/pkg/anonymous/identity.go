// internal/pkg/anonymous/identity.go
package anonymous

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	randomBytes     = 16
	signatureLength = 16 // hex characters of the HMAC kept in the token
	minSecretLength = 32
)

// ErrWeakSecret is returned when the signing secret is missing or too short.
var ErrWeakSecret = errors.New("anonymous id secret must be at least 32 characters")

// Signer issues and verifies anonymous visitor ids of the form
// {unixMillis}-{32 hex random}-{16 hex HMAC-SHA256 prefix}.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. There is no fallback secret.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("anonymous id ttl must be positive, got %s", ttl)
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Generate returns a fresh signed anonymous id.
func (s *Signer) Generate() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	payload := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + hex.EncodeToString(buf)
	return payload + "-" + s.sign(payload), nil
}

// Validate reports whether token is a well-formed, authentic and unexpired id.
// Anything else, including tokens with extra segments, is invalid.
func (s *Signer) Validate(token string) bool {
	parts := strings.Split(token, "-")
	if len(parts) != 3 {
		return false
	}
	tsPart, randPart, sig := parts[0], parts[1], parts[2]

	if len(randPart) != randomBytes*2 || !isHex(randPart) {
		return false
	}
	if len(sig) != signatureLength {
		return false
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil || ts <= 0 {
		return false
	}

	expected := s.sign(tsPart + "-" + randPart)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return false
	}

	age := s.now().Sub(time.UnixMilli(ts))
	if age < 0 {
		age = -age
	}
	return age <= s.ttl
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}

func isHex(v string) bool {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
