package service

import (
	"context"
	"errors"
	"strings"

	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/storage"
	"bitwise74/recipe-api/pkg/apperr"
	"bitwise74/recipe-api/pkg/validators"

	"gorm.io/gorm"
)

type Partition string

const (
	PartitionPublic  Partition = "public"
	PartitionPrivate Partition = "private"
	PartitionPosted  Partition = "posted"
	PartitionOthers  Partition = "others"
	PartitionSaved   Partition = "saved"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

var (
	errRecipeNotFound = apperr.New(apperr.NotFound, "Not found.")
	errNoPermission   = apperr.New(apperr.Forbidden, "You do not have permission to perform this action.")
)

type ListQuery struct {
	Search string
	Page   int
	Limit  int
}

func (q ListQuery) apply(db *gorm.DB) *gorm.DB {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)

	page := max(q.Page, 1)

	return db.Limit(limit).Offset((page - 1) * limit)
}

// search adds a case insensitive match of every word of term against any
// of the given columns
func search(db *gorm.DB, term string, columns ...string) *gorm.DB {
	for _, word := range strings.Fields(term) {
		pattern := "%" + strings.ToLower(word) + "%"

		or := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, c := range columns {
			or[i] = "LOWER(" + c + ") LIKE ?"
			args[i] = pattern
		}

		db = db.Where("("+strings.Join(or, " OR ")+")", args...)
	}

	return db
}

type RecipeInput struct {
	Title        string `json:"title" form:"title" binding:"required,max=100"`
	Ingredients  string `json:"ingredients" form:"ingredients" binding:"required"`
	Instructions string `json:"instructions" form:"instructions" binding:"required"`
	IsPublic     *bool  `json:"is_public" form:"is_public"`
	Image        string `json:"-" form:"-"`
}

type RecipePatch struct {
	Title        *string `json:"title" form:"title" binding:"omitnil,min=1,max=100"`
	Ingredients  *string `json:"ingredients" form:"ingredients" binding:"omitnil,min=1"`
	Instructions *string `json:"instructions" form:"instructions" binding:"omitnil,min=1"`
	IsPublic     *bool   `json:"is_public" form:"is_public"`
	Image        *string `json:"-" form:"-"`
}

// checkFields trims the given fields of in, then checks its binding tags
func checkFields(in any, trim ...*string) error {
	for _, f := range trim {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}

	if err := validators.Fields(in); err != nil {
		return apperr.New(apperr.Validation, err.Error())
	}

	return nil
}

// Catalog holds recipes and the save sets of user profiles
type Catalog struct {
	db     *gorm.DB
	images storage.ImageStore
}

func NewCatalog(db *gorm.DB, images storage.ImageStore) *Catalog {
	return &Catalog{db: db, images: images}
}

func (s *Catalog) load(ctx context.Context, id uint) (*model.Recipe, error) {
	var r model.Recipe
	err := s.db.WithContext(ctx).Preload("Creator.Account").First(&r, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errRecipeNotFound
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load recipe", err)
	}

	return &r, nil
}

func ownerOf(r *model.Recipe) uint {
	if r.Creator == nil {
		return 0
	}

	return r.Creator.AccountID
}

func ownsRecipe(p *access.Principal, r *model.Recipe) bool {
	return p.Profile != nil && r.CreatorID == p.Profile.ID
}

// List returns one page of a recipe partition as seen by p
func (s *Catalog) List(ctx context.Context, p *access.Principal, part Partition, q ListQuery) ([]model.Recipe, error) {
	db := s.db.WithContext(ctx).Model(&model.Recipe{}).Preload("Creator.Account")

	switch part {
	case PartitionPublic:
		db = db.Where("recipes.is_public = ?", true)
	case PartitionPrivate:
		db = db.Where("recipes.is_public = ?", false)
		if p.Role != access.RoleStaff {
			if p.Profile == nil {
				return []model.Recipe{}, nil
			}
			db = db.Where("recipes.creator_id = ?", p.Profile.ID)
		}
	case PartitionPosted:
		if p.Profile == nil {
			return []model.Recipe{}, nil
		}
		db = db.Where("recipes.creator_id = ?", p.Profile.ID)
	case PartitionOthers:
		db = db.Where("recipes.is_public = ?", true)
		if p.Profile != nil {
			db = db.Where("recipes.creator_id <> ?", p.Profile.ID)
		}
	case PartitionSaved:
		if p.Profile == nil {
			return []model.Recipe{}, nil
		}
		db = db.
			Joins("JOIN profile_saved_recipes ON profile_saved_recipes.recipe_id = recipes.id").
			Where("profile_saved_recipes.profile_id = ?", p.Profile.ID)
	default:
		return nil, errRecipeNotFound
	}

	db = search(db, q.Search, "recipes.title", "recipes.ingredients", "recipes.instructions")

	out := []model.Recipe{}
	err := q.apply(db).
		Order("recipes.created_at DESC").
		Order("recipes.id DESC").
		Find(&out).
		Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list recipes", err)
	}

	return out, nil
}

// Get returns a recipe if p is allowed to see it. Hidden recipes look
// like missing ones.
func (s *Catalog) Get(ctx context.Context, p *access.Principal, id uint) (*model.Recipe, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !r.IsPublic && !p.CanModify(ownerOf(r)) {
		return nil, errRecipeNotFound
	}

	return r, nil
}

// Create stores a new recipe owned by the caller's profile
func (s *Catalog) Create(ctx context.Context, p *access.Principal, in RecipeInput) (*model.Recipe, error) {
	if p.Role != access.RoleUser {
		return nil, apperr.New(apperr.Forbidden, "Only users can post recipes.")
	}

	if err := checkFields(&in, &in.Title, &in.Ingredients, &in.Instructions); err != nil {
		return nil, err
	}

	r := &model.Recipe{
		CreatorID:    p.Profile.ID,
		Title:        in.Title,
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
		Image:        in.Image,
		IsPublic:     in.IsPublic == nil || *in.IsPublic,
	}

	if r.Image == "" {
		r.Image = model.DefaultRecipeImage
	}

	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create recipe", err)
	}

	return s.load(ctx, r.ID)
}

// Update changes a recipe. When it stops being public every saved
// reference to it is dropped in the same transaction.
func (s *Catalog) Update(ctx context.Context, p *access.Principal, id uint, in RecipePatch) (*model.Recipe, error) {
	r, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if !p.CanModify(ownerOf(r)) {
		return nil, errNoPermission
	}

	if err := checkFields(&in, in.Title, in.Ingredients, in.Instructions); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Ingredients != nil {
		updates["ingredients"] = *in.Ingredients
	}
	if in.Instructions != nil {
		updates["instructions"] = *in.Instructions
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}
	if in.Image != nil {
		updates["image"] = *in.Image
	}

	wasPublic := r.IsPublic
	oldImage := r.Image

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&model.Recipe{ID: r.ID}).Updates(updates).Error; err != nil {
				return err
			}
		}

		if wasPublic && in.IsPublic != nil && !*in.IsPublic {
			if err := tx.Where("recipe_id = ?", r.ID).Delete(&model.SavedRecipe{}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to update recipe", err)
	}

	if in.Image != nil && *in.Image != oldImage {
		removeImages(ctx, s.images, []string{oldImage})
	}

	return s.load(ctx, r.ID)
}

func (s *Catalog) Delete(ctx context.Context, p *access.Principal, id uint) error {
	r, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}

	if !p.CanModify(ownerOf(r)) {
		return errNoPermission
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", r.ID).Delete(&model.SavedRecipe{}).Error; err != nil {
			return err
		}

		return tx.Delete(&model.Recipe{}, r.ID).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete recipe", err)
	}

	removeImages(ctx, s.images, []string{r.Image})
	return nil
}

// Save adds a public recipe to the caller's save set
func (s *Catalog) Save(ctx context.Context, p *access.Principal, id uint) error {
	if p.Role != access.RoleUser {
		return apperr.New(apperr.Forbidden, "Only users can save recipes.")
	}

	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if !r.IsPublic {
		if ownsRecipe(p, r) {
			return apperr.New(apperr.Validation, "Private recipes can't be saved.")
		}
		return errRecipeNotFound
	}

	alreadySaved := apperr.New(apperr.Conflict, "Recipe already saved.")

	var n int64
	err = s.db.WithContext(ctx).
		Model(&model.SavedRecipe{}).
		Where("profile_id = ? AND recipe_id = ?", p.Profile.ID, r.ID).
		Count(&n).
		Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to check saved recipes", err)
	}

	if n > 0 {
		return alreadySaved
	}

	err = s.db.WithContext(ctx).Create(&model.SavedRecipe{ProfileID: p.Profile.ID, RecipeID: r.ID}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return alreadySaved
		}
		return apperr.Wrap(apperr.Internal, "failed to save recipe", err)
	}

	return nil
}

// Unsave removes a recipe from the caller's save set
func (s *Catalog) Unsave(ctx context.Context, p *access.Principal, id uint) error {
	if p.Role != access.RoleUser {
		return apperr.New(apperr.Forbidden, "Only users can save recipes.")
	}

	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("profile_id = ? AND recipe_id = ?", p.Profile.ID, r.ID).
		Delete(&model.SavedRecipe{})
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "failed to unsave recipe", res.Error)
	}

	if res.RowsAffected == 0 {
		return apperr.New(apperr.Validation, "Recipe not found in saved recipes.")
	}

	return nil
}
