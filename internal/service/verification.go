package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/pkg/apperr"
	"bitwise74/recipe-api/pkg/security"
	"bitwise74/recipe-api/pkg/validators"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Verifier drives the email verification of new accounts
type Verifier struct {
	db       *gorm.DB
	tokens   *security.VerificationTokens
	queue    MailQueue
	url      string
	cooldown time.Duration
}

func NewVerifier(db *gorm.DB, tokens *security.VerificationTokens, queue MailQueue, url string, cooldown time.Duration) *Verifier {
	return &Verifier{
		db:       db,
		tokens:   tokens,
		queue:    queue,
		url:      strings.TrimRight(url, "/"),
		cooldown: cooldown,
	}
}

// URL returns the link the account has to open to verify itself
func (v *Verifier) URL(a *model.Account) string {
	idToken, verifyToken := v.tokens.Issue(a.ID, a.IsActive)
	return fmt.Sprintf("%s/%s/%s", v.url, idToken, verifyToken)
}

// SendVerification hands the verification mail of a to the mail queue.
// Failures are only logged, the account stays registered either way.
func (v *Verifier) SendVerification(ctx context.Context, a *model.Account) {
	err := v.queue.Enqueue(ctx, VerificationMail{
		To:       a.Email,
		Username: a.Username,
		URL:      v.URL(a),
	})
	if err != nil {
		zap.L().Error("Failed to enqueue verification mail", zap.Uint("account_id", a.ID), zap.Error(err))
	}
}

// Confirm marks the profile of the account the token pair was issued for as
// verified. Confirming twice is fine.
func (v *Verifier) Confirm(ctx context.Context, idToken, verifyToken string) error {
	notFound := apperr.New(apperr.NotFound, "User not found. Register again.")

	id, err := security.DecodeIDToken(idToken)
	if err != nil {
		return notFound
	}

	var a model.Account
	err = v.db.WithContext(ctx).
		Preload("Profile").
		Preload("Nutritionist").
		First(&a, id).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound
		}
		return apperr.Wrap(apperr.Internal, "failed to load account", err)
	}

	if !v.tokens.Check(a.ID, a.IsActive, idToken, verifyToken) {
		return apperr.New(apperr.Unauthenticated, "User could not be verified. Register again.")
	}

	return v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch {
		case a.Profile != nil:
			err = tx.Model(a.Profile).Update("is_verified", true).Error
		case a.Nutritionist != nil:
			err = tx.Model(a.Nutritionist).Update("is_verified", true).Error
		default:
			return apperr.New(apperr.NotFound, "No profile associated with given user. Please register again")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, "failed to verify profile", err)
		}

		if err := tx.Model(&model.Account{ID: a.ID}).Update("expires_at", nil).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to clear account expiry", err)
		}

		return nil
	})
}

// Resend queues a new verification mail for an unverified account. It
// answers the same way whether the email exists or not.
func (v *Verifier) Resend(ctx context.Context, email string) error {
	if err := validators.EmailValidator(email); err != nil {
		return apperr.New(apperr.Validation, err.Error())
	}

	var a model.Account
	err := v.db.WithContext(ctx).
		Preload("Profile").
		Preload("Nutritionist").
		Where("email = ?", email).
		First(&a).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperr.Wrap(apperr.Internal, "failed to load account", err)
	}

	switch {
	case a.Profile != nil && !a.Profile.IsVerified:
	case a.Nutritionist != nil && !a.Nutritionist.IsVerified:
	default:
		return nil
	}

	now := time.Now()

	var req model.ResendRequest
	err = v.db.WithContext(ctx).Where("account_id = ?", a.ID).First(&req).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.Internal, "failed to load resend request", err)
	}

	if err == nil && now.Before(req.Cooldown) {
		zap.L().Debug("Verification resend on cooldown", zap.Uint("account_id", a.ID))
		return nil
	}

	err = v.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_resend", "cooldown"}),
		}).
		Create(&model.ResendRequest{
			AccountID:  a.ID,
			LastResend: now,
			Cooldown:   now.Add(v.cooldown),
		}).
		Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to save resend request", err)
	}

	v.SendVerification(ctx, &a)
	return nil
}
