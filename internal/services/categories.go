package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/cache"
	"github.com/beboard/backend/internal/database"
	"github.com/beboard/backend/internal/models"
)

const (
	categoryListKey  = "categories:active"
	categoryCacheTTL = 10 * time.Minute
)

func categoryKey(id int) string {
	return fmt.Sprintf("category:%d", id)
}

// CategoryService manages the board categories behind an explicit cache:
// reads go through get/set with a TTL, writes invalidate their keys. The list
// changes rarely, so the cache takes most of the read load.
type CategoryService struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewCategoryService(db *gorm.DB, store cache.Cache) *CategoryService {
	return &CategoryService{db: db, cache: store}
}

// CategoryWithCount pairs a category with its live post count.
type CategoryWithCount struct {
	models.Category
	PostCount int64 `json:"post_count"`
}

// ListActive returns the active categories in display order, each with its
// post count.
func (s *CategoryService) ListActive(ctx context.Context) ([]CategoryWithCount, error) {
	if raw, ok := s.cache.Get(ctx, categoryListKey); ok {
		var cached []CategoryWithCount
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("display_order asc").
		Find(&categories).Error; err != nil {
		return nil, err
	}

	counts, err := s.postCounts(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]CategoryWithCount, 0, len(categories))
	for _, c := range categories {
		result = append(result, CategoryWithCount{Category: c, PostCount: counts[c.ID]})
	}

	if raw, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, categoryListKey, raw, categoryCacheTTL)
	}

	return result, nil
}

func (s *CategoryService) Get(ctx context.Context, categoryID int) (*CategoryWithCount, error) {
	if raw, ok := s.cache.Get(ctx, categoryKey(categoryID)); ok {
		var cached CategoryWithCount
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}

	var postCount int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("category_id = ? AND deleted = ?", categoryID, false).
		Count(&postCount).Error; err != nil {
		return nil, err
	}

	result := &CategoryWithCount{Category: category, PostCount: postCount}
	if raw, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, categoryKey(categoryID), raw, categoryCacheTTL)
	}

	return result, nil
}

// CreateCategoryRequest carries the writable category fields. DisplayOrder
// nil means append after the current last category.
type CreateCategoryRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	DisplayOrder *int   `json:"display_order"`
}

func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.ErrInvalidArgument
	}

	order := 0
	if req.DisplayOrder != nil {
		order = *req.DisplayOrder
	} else {
		var max int
		s.db.WithContext(ctx).Model(&models.Category{}).
			Select("COALESCE(MAX(display_order), 0)").Scan(&max)
		order = max + 1
	}

	category := models.Category{
		Name:         name,
		Slug:         slug.Make(name),
		Description:  req.Description,
		Active:       true,
		DisplayOrder: order,
	}

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, err
	}

	s.invalidate(ctx, category.ID)
	log.Printf("Category created - ID: %d, name: %s", category.ID, category.Name)
	return &category, nil
}

// UpdateCategoryRequest updates only the non-nil fields.
type UpdateCategoryRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
	Active       *bool   `json:"active"`
}

func (s *CategoryService) Update(ctx context.Context, categoryID int, req UpdateCategoryRequest) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" && *req.Name != category.Name {
		var duplicate int64
		s.db.WithContext(ctx).Model(&models.Category{}).
			Where("name = ? AND id <> ?", *req.Name, categoryID).
			Count(&duplicate)
		if duplicate > 0 {
			return nil, apperr.ErrAlreadyExists
		}
		category.Name = *req.Name
		category.Slug = slug.Make(*req.Name)
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.DisplayOrder != nil {
		category.DisplayOrder = *req.DisplayOrder
	}
	if req.Active != nil {
		category.Active = *req.Active
	}

	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, err
	}

	s.invalidate(ctx, categoryID)
	return &category, nil
}

// Delete removes a category outright. A category that still has posts cannot
// be deleted.
func (s *CategoryService) Delete(ctx context.Context, categoryID int) error {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
		return apperr.ErrNotFound
	}

	var postCount int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("category_id = ?", categoryID).
		Count(&postCount).Error; err != nil {
		return err
	}
	if postCount > 0 {
		return fmt.Errorf("category has %d post(s): %w", postCount, apperr.ErrInvalidState)
	}

	if err := s.db.WithContext(ctx).Delete(&category).Error; err != nil {
		return err
	}

	s.invalidate(ctx, categoryID)
	log.Printf("Category deleted - ID: %d, name: %s", categoryID, category.Name)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context, categoryID int) {
	s.cache.Invalidate(ctx, categoryListKey, categoryKey(categoryID))
}

func (s *CategoryService) postCounts(ctx context.Context) (map[int]int64, error) {
	type row struct {
		CategoryID int
		Count      int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Select("category_id, COUNT(*) as count").
		Where("deleted = ?", false).
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[int]int64, len(rows))
	for _, r := range rows {
		counts[r.CategoryID] = r.Count
	}
	return counts, nil
}
