package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/models"
	"github.com/beboard/backend/internal/notify"
)

// CommentService owns the threaded comment tree of a post: creation,
// author-only edits, and soft deletion with leaf detachment.
type CommentService struct {
	db        *gorm.DB
	publisher notify.Publisher
}

func NewCommentService(db *gorm.DB, publisher notify.Publisher) *CommentService {
	return &CommentService{db: db, publisher: publisher}
}

// CommentNode is one comment in a resolved tree. A soft-deleted node keeps
// its place but has its content suppressed.
type CommentNode struct {
	ID        int            `json:"id"`
	Content   string         `json:"content"`
	PostID    int            `json:"post_id"`
	AuthorID  int            `json:"author_id"`
	Author    models.User    `json:"author"`
	ParentID  *int           `json:"parent_id,omitempty"`
	Deleted   bool           `json:"deleted"`
	Children  []*CommentNode `json:"children"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Create adds a comment to a post, optionally as a reply. A reply's parent
// must belong to the same post. The post author is notified unless they wrote
// the comment themselves.
func (s *CommentService) Create(ctx context.Context, postID int, req models.CreateCommentRequest, commenter models.User) (*models.Comment, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperr.ErrInvalidArgument
	}

	var post models.Post
	if err := s.db.WithContext(ctx).Where("deleted = ?", false).First(&post, postID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}

	if req.ParentID != nil {
		var parent models.Comment
		if err := s.db.WithContext(ctx).First(&parent, *req.ParentID).Error; err != nil {
			return nil, apperr.ErrNotFound
		}
		if parent.PostID != post.ID {
			return nil, fmt.Errorf("parent comment belongs to a different post: %w", apperr.ErrInvalidArgument)
		}
	}

	comment := models.Comment{
		Content:  req.Content,
		PostID:   post.ID,
		AuthorID: commenter.ID,
		ParentID: req.ParentID,
	}

	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}

	s.db.WithContext(ctx).Preload("Author").First(&comment, comment.ID)
	log.Printf("Comment created - ID: %d, author: %s, post: %d", comment.ID, commenter.Nickname, post.ID)

	if post.AuthorID != commenter.ID {
		msg := notify.NewMessage(
			post.AuthorID,
			fmt.Sprintf("%s commented on your post.", commenter.Nickname),
			fmt.Sprintf("/posts/%d", post.ID),
			"NEW_COMMENT",
		)
		sendNotification(ctx, s.publisher, msg)
	}

	return &comment, nil
}

// Update replaces a comment's content. Only the original author may edit,
// and a soft-deleted comment is no longer editable.
func (s *CommentService) Update(ctx context.Context, commentID int, content string, requestorID int) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.ErrInvalidArgument
	}

	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, commentID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}
	if comment.AuthorID != requestorID {
		return nil, apperr.ErrForbidden
	}
	if comment.Deleted {
		return nil, apperr.ErrInvalidState
	}

	comment.Content = content
	if err := s.db.WithContext(ctx).Save(&comment).Error; err != nil {
		return nil, err
	}

	s.db.WithContext(ctx).Preload("Author").First(&comment, comment.ID)
	return &comment, nil
}

// SoftDelete marks a comment deleted. A leaf is detached outright so it stops
// appearing in tree listings; a comment with replies stays in place and
// renders as a placeholder. The child count and the delete run in one
// transaction with the row locked so concurrent replies cannot race the
// detachment.
func (s *CommentService) SoftDelete(ctx context.Context, commentID int, requestorID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&comment, commentID).Error; err != nil {
			return apperr.ErrNotFound
		}
		if comment.AuthorID != requestorID {
			return apperr.ErrForbidden
		}

		var children int64
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", comment.ID).Count(&children).Error; err != nil {
			return err
		}

		if children == 0 {
			return tx.Delete(&comment).Error
		}

		return tx.Model(&comment).Update("deleted", true).Error
	})
}

// ListRootComments returns the post's top-level, non-deleted comments in
// reverse-chronological order, each with its reply subtree resolved. Deleted
// replies that still have children render as placeholders.
func (s *CommentService) ListRootComments(ctx context.Context, postID, page, size int) ([]*CommentNode, int64, error) {
	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ? AND deleted = ?", postID, false).Count(&exists).Error; err != nil {
		return nil, 0, err
	}
	if exists == 0 {
		return nil, 0, apperr.ErrNotFound
	}

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ? AND parent_id IS NULL AND deleted = ?", postID, false).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var roots []models.Comment
	if err := s.db.WithContext(ctx).Preload("Author").
		Where("post_id = ? AND parent_id IS NULL AND deleted = ?", postID, false).
		Order("created_at desc").
		Limit(size).Offset((page - 1) * size).
		Find(&roots).Error; err != nil {
		return nil, 0, err
	}

	// Children are resolved from an id index built at read time rather than
	// by recursive queries.
	var all []models.Comment
	if err := s.db.WithContext(ctx).Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at desc").
		Find(&all).Error; err != nil {
		return nil, 0, err
	}

	childIndex := make(map[int][]models.Comment)
	for _, c := range all {
		if c.ParentID != nil {
			childIndex[*c.ParentID] = append(childIndex[*c.ParentID], c)
		}
	}

	nodes := make([]*CommentNode, 0, len(roots))
	for _, root := range roots {
		nodes = append(nodes, buildNode(root, childIndex))
	}

	return nodes, total, nil
}

func buildNode(c models.Comment, childIndex map[int][]models.Comment) *CommentNode {
	node := &CommentNode{
		ID:        c.ID,
		Content:   c.Content,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Author:    c.Author,
		ParentID:  c.ParentID,
		Deleted:   c.Deleted,
		Children:  []*CommentNode{},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Deleted {
		node.Content = ""
	}
	for _, child := range childIndex[c.ID] {
		node.Children = append(node.Children, buildNode(child, childIndex))
	}
	return node
}
