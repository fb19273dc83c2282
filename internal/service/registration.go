package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/pkg/apperr"
	"bitwise74/recipe-api/pkg/security"
	"bitwise74/recipe-api/pkg/validators"

	"gorm.io/gorm"
)

var (
	errUsernameTaken = apperr.New(apperr.Conflict, "A user with that username already exists.")
	errEmailTaken    = apperr.New(apperr.Conflict, "A user with this email already exists.")
	errAccountTaken  = apperr.New(apperr.Conflict, "A user with that username or email already exists.")
)

type AccountInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type NutritionistInput struct {
	Qualification     string `json:"qualification"`
	YearsOfExperience *int   `json:"years_of_experience" binding:"required,gte=0"`
}

// Registrar creates new accounts together with their profile
type Registrar struct {
	db            *gorm.DB
	argon         *security.ArgonHash
	verifier      *Verifier
	unverifiedTTL time.Duration
}

func NewRegistrar(db *gorm.DB, argon *security.ArgonHash, verifier *Verifier, unverifiedTTL time.Duration) *Registrar {
	return &Registrar{
		db:            db,
		argon:         argon,
		verifier:      verifier,
		unverifiedTTL: unverifiedTTL,
	}
}

func validateAccountInput(in *AccountInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validators.UsernameValidator(in.Username); err != nil {
		return apperr.New(apperr.Validation, err.Error())
	}

	if err := validators.EmailValidator(in.Email); err != nil {
		return apperr.New(apperr.Validation, err.Error())
	}

	if err := validators.PasswordValidator(in.Password); err != nil {
		return apperr.New(apperr.Validation, err.Error())
	}

	return nil
}

// checkAvailable makes sure no other account than exclude uses the
// username or email. Usernames and emails share one namespace since either
// one can be used to log in.
func checkAvailable(tx *gorm.DB, username, email string, exclude uint) error {
	var n int64

	if username != "" {
		if err := tx.Model(&model.Account{}).Where("(username = ? OR email = ?) AND id <> ?", username, username, exclude).Count(&n).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to check username", err)
		}
		if n > 0 {
			return errUsernameTaken
		}
	}

	if email != "" {
		if err := tx.Model(&model.Account{}).Where("(email = ? OR username = ?) AND id <> ?", email, email, exclude).Count(&n).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to check email", err)
		}
		if n > 0 {
			return errEmailTaken
		}
	}

	return nil
}

// Register creates a plain user or a nutritionist and sends out the
// verification mail. Nothing is written when any step fails.
func (r *Registrar) Register(ctx context.Context, role access.Role, in AccountInput, n *NutritionistInput) (*model.Account, error) {
	if err := validateAccountInput(&in); err != nil {
		return nil, err
	}

	switch role {
	case access.RoleUser:
	case access.RoleNutritionist:
		if n == nil {
			return nil, apperr.New(apperr.Validation, "years_of_experience is required.")
		}
		if err := checkFields(n, &n.Qualification); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.New(apperr.Internal, "unsupported role "+role.String())
	}

	if err := checkAvailable(r.db.WithContext(ctx), in.Username, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := r.argon.GenerateFromPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}

	a := &model.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     true,
	}

	if r.unverifiedTTL > 0 {
		exp := time.Now().Add(r.unverifiedTTL)
		a.ExpiresAt = &exp
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}

		if role == access.RoleNutritionist {
			a.Nutritionist = &model.NutritionistProfile{
				AccountID:         a.ID,
				Qualification:     n.Qualification,
				YearsOfExperience: *n.YearsOfExperience,
			}
			return tx.Create(a.Nutritionist).Error
		}

		a.Profile = &model.Profile{AccountID: a.ID}
		return tx.Create(a.Profile).Error
	})
	if err != nil {
		a.Profile, a.Nutritionist = nil, nil

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errAccountTaken
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to create account", err)
	}

	r.verifier.SendVerification(ctx, a)
	return a, nil
}
