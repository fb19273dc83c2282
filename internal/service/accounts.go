package service

import (
	"context"
	"errors"
	"strings"

	"bitwise74/recipe-api/config"
	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/storage"
	"bitwise74/recipe-api/pkg/apperr"
	"bitwise74/recipe-api/pkg/security"
	"bitwise74/recipe-api/pkg/validators"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type NutritionistUpdate struct {
	User              AccountUpdate `json:"user"`
	Qualification     *string       `json:"qualification"`
	YearsOfExperience *int          `json:"years_of_experience" binding:"omitnil,gte=0"`
}

// Accounts manages existing accounts and their profiles
type Accounts struct {
	db     *gorm.DB
	argon  *security.ArgonHash
	images storage.ImageStore
}

func NewAccounts(db *gorm.DB, argon *security.ArgonHash, images storage.ImageStore) *Accounts {
	return &Accounts{db: db, argon: argon, images: images}
}

func (s *Accounts) accountUpdates(tx *gorm.DB, a *model.Account, in AccountUpdate) (map[string]any, error) {
	updates := map[string]any{}
	var username, email string

	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if err := validators.UsernameValidator(username); err != nil {
			return nil, apperr.New(apperr.Validation, err.Error())
		}
		updates["username"] = username
	}

	if in.Email != nil {
		email = strings.TrimSpace(*in.Email)
		if err := validators.EmailValidator(email); err != nil {
			return nil, apperr.New(apperr.Validation, err.Error())
		}
		updates["email"] = email
	}

	if in.Password != nil && *in.Password != "" {
		if err := validators.PasswordValidator(*in.Password); err != nil {
			return nil, apperr.New(apperr.Validation, err.Error())
		}

		hash, err := s.argon.GenerateFromPassword(*in.Password)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to hash password", err)
		}
		updates["password_hash"] = hash
	}

	if err := checkAvailable(tx, username, email, a.ID); err != nil {
		if errors.Is(err, errEmailTaken) {
			return nil, apperr.New(apperr.Conflict, "A user with that email already exists.")
		}
		return nil, err
	}

	return updates, nil
}

func applyUpdates(tx *gorm.DB, a *model.Account, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	if err := tx.Model(a).Omit(clause.Associations).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errAccountTaken
		}
		return apperr.Wrap(apperr.Internal, "failed to update account", err)
	}

	return nil
}

// Update changes the username, email or password of an account
func (s *Accounts) Update(ctx context.Context, a *model.Account, in AccountUpdate) (*model.Account, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates, err := s.accountUpdates(tx, a, in)
		if err != nil {
			return err
		}

		return applyUpdates(tx, a, updates)
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(a, a.ID).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to reload account", err)
	}

	return a, nil
}

// UpdateNutritionist changes the account and the professional details of
// the calling nutritionist
func (s *Accounts) UpdateNutritionist(ctx context.Context, p *access.Principal, in NutritionistUpdate) (*model.NutritionistProfile, error) {
	if p.Nutritionist == nil {
		return nil, apperr.New(apperr.Forbidden, "Only nutritionists have a nutritionist profile.")
	}

	if err := checkFields(&in, in.Qualification); err != nil {
		return nil, err
	}

	n := p.Nutritionist

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates, err := s.accountUpdates(tx, p.Account, in.User)
		if err != nil {
			return err
		}

		if err := applyUpdates(tx, p.Account, updates); err != nil {
			return err
		}

		profile := map[string]any{}
		if in.Qualification != nil {
			profile["qualification"] = strings.TrimSpace(*in.Qualification)
		}
		if in.YearsOfExperience != nil {
			profile["years_of_experience"] = *in.YearsOfExperience
		}

		if len(profile) == 0 {
			return nil
		}

		if err := tx.Model(n).Updates(profile).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to update nutritionist", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Nutritionist(ctx, p)
}

// Me returns the profile of a plain user with their saved recipes
func (s *Accounts) Me(ctx context.Context, p *access.Principal) (*model.Profile, error) {
	if p.Profile == nil {
		return nil, apperr.New(apperr.NotFound, "No user profile associated with this account.")
	}

	var profile model.Profile
	err := s.db.WithContext(ctx).
		Preload("Account").
		Preload("SavedRecipes.Creator.Account").
		First(&profile, p.Profile.ID).
		Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load profile", err)
	}

	return &profile, nil
}

func (s *Accounts) Nutritionist(ctx context.Context, p *access.Principal) (*model.NutritionistProfile, error) {
	if p.Nutritionist == nil {
		return nil, apperr.New(apperr.NotFound, "No nutritionist profile associated with this account.")
	}

	var n model.NutritionistProfile
	if err := s.db.WithContext(ctx).Preload("Account").First(&n, p.Nutritionist.ID).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load nutritionist", err)
	}

	return &n, nil
}

// ListProfiles returns all verified user profiles
func (s *Accounts) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	out := []model.Profile{}
	err := s.db.WithContext(ctx).
		Preload("Account").
		Where("is_verified = ?", true).
		Order("id").
		Find(&out).
		Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list profiles", err)
	}

	return out, nil
}

// ListNutritionists returns all verified nutritionists
func (s *Accounts) ListNutritionists(ctx context.Context) ([]model.NutritionistProfile, error) {
	out := []model.NutritionistProfile{}
	err := s.db.WithContext(ctx).
		Preload("Account").
		Where("is_verified = ?", true).
		Order("id").
		Find(&out).
		Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list nutritionists", err)
	}

	return out, nil
}

// Delete removes the account called username with everything it owns.
// Only the account itself or staff may do that.
func (s *Accounts) Delete(ctx context.Context, p *access.Principal, username string) error {
	var target model.Account
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Preload("Nutritionist").
		Where("username = ?", username).
		First(&target).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Not found.")
		}
		return apperr.Wrap(apperr.Internal, "failed to load account", err)
	}

	if !p.CanModify(target.ID) {
		return apperr.New(apperr.Forbidden, "You do not have permission to delete this account.")
	}

	var images []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		images, err = deleteAccount(tx, &target)
		return err
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete account", err)
	}

	removeImages(ctx, s.images, images)
	return nil
}

// deleteAccount removes a and everything that hangs off it. It returns the
// image keys of the deleted recipes so they can be removed from storage.
func deleteAccount(tx *gorm.DB, a *model.Account) ([]string, error) {
	var images []string

	if a.Profile != nil {
		var recipeIDs []uint
		if err := tx.Model(&model.Recipe{}).Where("creator_id = ?", a.Profile.ID).Pluck("id", &recipeIDs).Error; err != nil {
			return nil, err
		}

		if err := tx.Model(&model.Recipe{}).Where("creator_id = ?", a.Profile.ID).Pluck("image", &images).Error; err != nil {
			return nil, err
		}

		q := tx.Where("profile_id = ?", a.Profile.ID)
		if len(recipeIDs) > 0 {
			q = q.Or("recipe_id IN ?", recipeIDs)
		}
		if err := q.Delete(&model.SavedRecipe{}).Error; err != nil {
			return nil, err
		}

		if err := tx.Where("creator_id = ?", a.Profile.ID).Delete(&model.Recipe{}).Error; err != nil {
			return nil, err
		}

		if err := tx.Delete(a.Profile).Error; err != nil {
			return nil, err
		}
	}

	if a.Nutritionist != nil {
		if err := tx.Where("nutritionist_id = ?", a.Nutritionist.ID).Delete(&model.Blog{}).Error; err != nil {
			return nil, err
		}

		if err := tx.Delete(a.Nutritionist).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Where("account_id = ?", a.ID).Delete(&model.ResendRequest{}).Error; err != nil {
		return nil, err
	}

	if err := tx.Delete(a).Error; err != nil {
		return nil, err
	}

	return images, nil
}

// removeImages deletes uploaded images from storage, the default image is
// shared and never removed
func removeImages(ctx context.Context, store storage.ImageStore, keys []string) {
	if store == nil {
		return
	}

	var toDelete []string
	for _, k := range keys {
		if k != "" && k != model.DefaultRecipeImage {
			toDelete = append(toDelete, k)
		}
	}

	if len(toDelete) == 0 {
		return
	}

	if err := store.Delete(ctx, toDelete...); err != nil {
		zap.L().Error("Failed to delete images from storage", zap.Strings("keys", toDelete), zap.Error(err))
	}
}

// EnsureStaff creates the configured staff account if it doesn't exist yet
func (s *Accounts) EnsureStaff(ctx context.Context, c config.AdminConfig) error {
	if c.Username == "" {
		return nil
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Account{}).Where("username = ?", c.Username).Count(&n).Error; err != nil {
		return err
	}

	if n > 0 {
		return nil
	}

	hash, err := s.argon.GenerateFromPassword(c.Password)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Create(&model.Account{
		Username:     c.Username,
		Email:        c.Email,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
	}).Error
	if err != nil {
		return err
	}

	zap.L().Info("Staff account created", zap.String("username", c.Username))
	return nil
}
