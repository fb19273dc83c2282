package service

import (
	"context"
	"errors"

	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/pkg/apperr"
	"bitwise74/recipe-api/pkg/security"

	"gorm.io/gorm"
)

var errTokenInvalid = apperr.New(apperr.Unauthenticated, "Token is invalid or expired")

// Sessions issues, rotates and revokes JWT pairs. Refresh tokens are single
// use: rotating or revoking one puts its jti on the blacklist.
type Sessions struct {
	db     *gorm.DB
	signer *security.SessionSigner
}

func NewSessions(db *gorm.DB, signer *security.SessionSigner) *Sessions {
	return &Sessions{db: db, signer: signer}
}

func (s *Sessions) Issue(accountID uint) (*security.TokenPair, error) {
	pair, err := s.signer.IssuePair(accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to issue tokens", err)
	}

	return pair, nil
}

// ParseAccess validates an access token
func (s *Sessions) ParseAccess(token string) (*security.SessionClaims, error) {
	claims, err := s.signer.Parse(token, security.AccessToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "Given token not valid for any token type", err)
	}

	return claims, nil
}

func blacklist(tx *gorm.DB, claims *security.SessionClaims) error {
	err := tx.Create(&model.BlacklistedToken{
		JTI:       claims.ID,
		AccountID: claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.Unauthenticated, "Token is blacklisted")
		}
		return apperr.Wrap(apperr.Internal, "failed to blacklist token", err)
	}

	return nil
}

// Rotate exchanges a refresh token for a new pair. The presented token is
// blacklisted in the same transaction, so it can be used at most once.
func (s *Sessions) Rotate(ctx context.Context, refresh string) (*security.TokenPair, error) {
	claims, err := s.signer.Parse(refresh, security.RefreshToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, errTokenInvalid.Message, err)
	}

	var pair *security.TokenPair

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Account
		if err := tx.Select("id", "is_active").First(&a, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errTokenInvalid
			}
			return apperr.Wrap(apperr.Internal, "failed to load account", err)
		}

		if !a.IsActive {
			return errTokenInvalid
		}

		if err := blacklist(tx, claims); err != nil {
			return err
		}

		pair, err = s.Issue(a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Revoke blacklists the refresh token of accountID, used on logout
func (s *Sessions) Revoke(ctx context.Context, refresh string, accountID uint) error {
	claims, err := s.signer.Parse(refresh, security.RefreshToken)
	if err != nil {
		return apperr.Wrap(apperr.Unauthenticated, errTokenInvalid.Message, err)
	}

	if claims.UserID != accountID {
		return errTokenInvalid
	}

	return blacklist(s.db.WithContext(ctx), claims)
}
