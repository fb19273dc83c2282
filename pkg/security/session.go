package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

type SessionClaims struct {
	UserID uint      `json:"user_id"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// SessionSigner signs and parses the access and refresh JWTs
type SessionSigner struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewSessionSigner(secret string, accessTTL, refreshTTL time.Duration) *SessionSigner {
	return &SessionSigner{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *SessionSigner) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *SessionSigner) sign(userID uint, typ TokenType, ttl time.Duration) (string, error) {
	now := s.now()

	claims := SessionClaims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// IssuePair signs a fresh access and refresh token for the user
func (s *SessionSigner) IssuePair(userID uint) (*TokenPair, error) {
	access, err := s.sign(userID, AccessToken, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token, %w", err)
	}

	refresh, err := s.sign(userID, RefreshToken, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token, %w", err)
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Parse validates the signature and expiry of t and makes sure it is of
// the wanted type
func (s *SessionSigner) Parse(t string, want TokenType) (*SessionClaims, error) {
	claims := &SessionClaims{}

	_, err := jwt.ParseWithClaims(t, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	if claims.Type != want {
		return nil, ErrWrongTokenType
	}

	if claims.ID == "" || claims.UserID == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
