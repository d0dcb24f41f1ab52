package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/models"
)

type PostService struct {
	db *gorm.DB
}

func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// ListPostsQuery filters and orders a post listing.
type ListPostsQuery struct {
	CategoryID int    // 0 means all categories
	Search     string // matches title or content, case-insensitive
	Sort       string // "latest" (default) or "popular"
	Page       int
	Size       int
}

func (s *PostService) List(ctx context.Context, q ListPostsQuery) ([]models.Post, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Post{}).Where("deleted = ?", false)
	if q.CategoryID != 0 {
		query = query.Where("category_id = ?", q.CategoryID)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at desc"
	if q.Sort == "popular" {
		order = "view_count desc, created_at desc"
	}

	var posts []models.Post
	if err := query.Preload("Author").Preload("Category").
		Order(order).
		Limit(q.Size).Offset((q.Page - 1) * q.Size).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (s *PostService) Get(ctx context.Context, postID int) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).
		Preload("Author").Preload("Category").
		Where("deleted = ?", false).
		First(&post, postID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}
	return &post, nil
}

// IncrementViews bumps the view counter atomically in the database.
func (s *PostService) IncrementViews(ctx context.Context, postID int) {
	s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
}

func (s *PostService) Create(ctx context.Context, req models.CreatePostRequest, authorID int) (*models.Post, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("active = ?", true).First(&category, req.CategoryID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}

	post := models.Post{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: category.ID,
		AuthorID:   authorID,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, err
	}

	s.db.WithContext(ctx).Preload("Author").Preload("Category").First(&post, post.ID)
	return &post, nil
}

func (s *PostService) Update(ctx context.Context, postID int, req models.CreatePostRequest, userID int) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("deleted = ?", false).First(&post, postID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}
	if post.AuthorID != userID {
		return nil, apperr.ErrForbidden
	}

	if req.CategoryID != 0 && req.CategoryID != post.CategoryID {
		var category models.Category
		if err := s.db.WithContext(ctx).Where("active = ?", true).First(&category, req.CategoryID).Error; err != nil {
			return nil, apperr.ErrNotFound
		}
		post.CategoryID = category.ID
	}
	if strings.TrimSpace(req.Title) != "" {
		post.Title = req.Title
	}
	if strings.TrimSpace(req.Content) != "" {
		post.Content = req.Content
	}

	if err := s.db.WithContext(ctx).Save(&post).Error; err != nil {
		return nil, err
	}

	s.db.WithContext(ctx).Preload("Author").Preload("Category").First(&post, post.ID)
	return &post, nil
}

// Delete soft-deletes a post; its comment tree stays intact underneath.
func (s *PostService) Delete(ctx context.Context, postID, userID int) error {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("deleted = ?", false).First(&post, postID).Error; err != nil {
		return apperr.ErrNotFound
	}
	if post.AuthorID != userID {
		return apperr.ErrForbidden
	}
	return s.db.WithContext(ctx).Model(&post).Update("deleted", true).Error
}

func (s *PostService) CountComments(ctx context.Context, postID int) int64 {
	var count int64
	s.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count)
	return count
}

// AddBookmark saves a post for a user. Idempotent: reports whether a new
// bookmark was created.
func (s *PostService) AddBookmark(ctx context.Context, postID, userID int) (bool, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("deleted = ?", false).First(&post, postID).Error; err != nil {
		return false, apperr.ErrNotFound
	}

	bookmark := models.Bookmark{UserID: userID, PostID: postID}
	if err := s.db.WithContext(ctx).Create(&bookmark).Error; err != nil {
		var existing int64
		s.db.WithContext(ctx).Model(&models.Bookmark{}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Count(&existing)
		if existing > 0 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PostService) RemoveBookmark(ctx context.Context, postID, userID int) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Bookmark{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *PostService) ListBookmarked(ctx context.Context, userID, page, size int) ([]models.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	base := s.db.WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN bookmarks b ON b.post_id = posts.id").
		Where("b.user_id = ? AND posts.deleted = ?", userID, false)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	if err := base.Preload("Author").Preload("Category").
		Order("b.created_at desc").
		Limit(size).Offset((page - 1) * size).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}
