package service

import (
	"context"
	"errors"

	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/pkg/apperr"

	"gorm.io/gorm"
)

type BlogInput struct {
	Title   string `json:"title" binding:"required,max=300"`
	Content string `json:"content" binding:"required"`
}

type BlogPatch struct {
	Title   *string `json:"title" binding:"omitnil,min=1,max=300"`
	Content *string `json:"content" binding:"omitnil,min=1"`
}

// Moderation runs the review workflow of nutritionist blogs. Every blog
// starts as pending and goes back to pending whenever its content changes.
type Moderation struct {
	db *gorm.DB
}

func NewModeration(db *gorm.DB) *Moderation {
	return &Moderation{db: db}
}

func (s *Moderation) load(ctx context.Context, id uint) (*model.Blog, error) {
	var b model.Blog
	err := s.db.WithContext(ctx).Preload("Nutritionist.Account").First(&b, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "Not found.")
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load blog", err)
	}

	return &b, nil
}

func ownsBlog(p *access.Principal, b *model.Blog) bool {
	return p.Nutritionist != nil && b.NutritionistID == p.Nutritionist.ID
}

// Create stores a blog of the calling nutritionist for review
func (s *Moderation) Create(ctx context.Context, p *access.Principal, in BlogInput) (*model.Blog, error) {
	if p.Role != access.RoleNutritionist {
		return nil, apperr.New(apperr.Forbidden, "Only nutritionists can post blogs.")
	}

	if err := checkFields(&in, &in.Title, &in.Content); err != nil {
		return nil, err
	}

	b := &model.Blog{
		NutritionistID: p.Nutritionist.ID,
		Title:          in.Title,
		Content:        in.Content,
		Status:         model.BlogPending,
	}

	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create blog", err)
	}

	return s.load(ctx, b.ID)
}

// UpdateContent edits a blog of its author and sends it back to review
func (s *Moderation) UpdateContent(ctx context.Context, p *access.Principal, id uint, in BlogPatch) (*model.Blog, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !ownsBlog(p, b) {
		return nil, errNoPermission
	}

	if err := checkFields(&in, in.Title, in.Content); err != nil {
		return nil, err
	}

	updates := map[string]any{"status": model.BlogPending}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}

	if err := s.db.WithContext(ctx).Model(&model.Blog{ID: b.ID}).Updates(updates).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to update blog", err)
	}

	return s.load(ctx, b.ID)
}

// UpdateStatus sets the review status of a blog. Staff may move a blog
// between any two states.
func (s *Moderation) UpdateStatus(ctx context.Context, p *access.Principal, id uint, status string) (*model.Blog, error) {
	if p.Role != access.RoleStaff {
		return nil, errNoPermission
	}

	st, err := model.ParseBlogStatus(status)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Invalid status.", err)
	}

	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&model.Blog{ID: b.ID}).Update("status", st).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to update blog status", err)
	}

	return s.load(ctx, b.ID)
}

func (s *Moderation) Delete(ctx context.Context, p *access.Principal, id uint) error {
	b, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if !ownsBlog(p, b) && p.Role != access.RoleStaff {
		return errNoPermission
	}

	if err := s.db.WithContext(ctx).Delete(&model.Blog{}, b.ID).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete blog", err)
	}

	return nil
}

func (s *Moderation) list(db *gorm.DB, q ListQuery) ([]model.Blog, error) {
	db = search(db, q.Search, "blogs.title", "blogs.content")

	out := []model.Blog{}
	err := q.apply(db).
		Preload("Nutritionist.Account").
		Order("blogs.created_at DESC").
		Order("blogs.id DESC").
		Find(&out).
		Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list blogs", err)
	}

	return out, nil
}

// ListApproved returns the public feed of approved blogs
func (s *Moderation) ListApproved(ctx context.Context, q ListQuery) ([]model.Blog, error) {
	return s.list(s.db.WithContext(ctx).Model(&model.Blog{}).Where("blogs.status = ?", model.BlogApproved), q)
}

// ListByStatus returns the blogs in a review state. Staff see every blog,
// nutritionists only their own.
func (s *Moderation) ListByStatus(ctx context.Context, p *access.Principal, status string, q ListQuery) ([]model.Blog, error) {
	st, err := model.ParseBlogStatus(status)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Invalid status.", err)
	}

	db := s.db.WithContext(ctx).Model(&model.Blog{}).Where("blogs.status = ?", st)

	switch p.Role {
	case access.RoleStaff:
	case access.RoleNutritionist:
		db = db.Where("blogs.nutritionist_id = ?", p.Nutritionist.ID)
	default:
		return nil, errNoPermission
	}

	return s.list(db, q)
}
