package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	// VerificationBucket is the width of the time window a verification
	// token is bound to
	VerificationBucket = 24 * time.Hour

	verifyHashLen = 32
)

var ErrInvalidIDToken = errors.New("invalid id token")

// VerificationTokens issues and checks stateless email verification tokens.
// A token pair is the account ID encoded as base64url and a hash bound to
// the account's ID, active flag and the day it was issued on. Nothing is
// stored, flipping the active flag or waiting out the TTL invalidates it.
type VerificationTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewVerificationTokens(secret string, ttl time.Duration) *VerificationTokens {
	return &VerificationTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source, used in tests
func (v *VerificationTokens) WithClock(now func() time.Time) *VerificationTokens {
	v.now = now
	return v
}

func (v *VerificationTokens) bucket(t time.Time) int64 {
	return t.Unix() / int64(VerificationBucket/time.Second)
}

func (v *VerificationTokens) hash(id uint, bucket int64, active bool) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strconv.FormatUint(uint64(id), 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(bucket, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatBool(active)))

	return hex.EncodeToString(mac.Sum(nil))[:verifyHashLen]
}

// Issue returns the id token and verify token for an account
func (v *VerificationTokens) Issue(id uint, active bool) (idToken, verifyToken string) {
	b := v.bucket(v.now())
	return EncodeID(id), strconv.FormatInt(b, 36) + "-" + v.hash(id, b, active)
}

// Check reports whether the token pair was issued for the account and is
// still fresh. Anything malformed fails.
func (v *VerificationTokens) Check(id uint, active bool, idToken, verifyToken string) bool {
	decoded, err := DecodeIDToken(idToken)
	if err != nil || decoded != id {
		return false
	}

	bucketPart, hashPart, ok := strings.Cut(verifyToken, "-")
	if !ok || len(hashPart) != verifyHashLen {
		return false
	}

	b, err := strconv.ParseInt(bucketPart, 36, 64)
	if err != nil || b < 0 {
		return false
	}

	current := v.bucket(v.now())
	if b > current {
		return false
	}

	if time.Duration(current-b)*VerificationBucket > v.ttl {
		return false
	}

	return hmac.Equal([]byte(hashPart), []byte(v.hash(id, b, active)))
}

// EncodeID encodes an account ID into an id token
func EncodeID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeIDToken turns an id token back into an account ID
func DecodeIDToken(t string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(t, "="))
	if err != nil {
		return 0, ErrInvalidIDToken
	}

	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidIDToken
	}

	return uint(id), nil
}
