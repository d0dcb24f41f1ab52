package models

import "time"

type Comment struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Content  string `gorm:"not null" json:"content"`
	PostID   int    `gorm:"index;not null" json:"post_id"`
	AuthorID int    `gorm:"not null" json:"author_id"`
	ParentID *int   `gorm:"index" json:"parent_id,omitempty"`
	Deleted  bool   `gorm:"not null;default:false" json:"deleted"`

	Author User `gorm:"foreignKey:AuthorID" json:"author"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCommentRequest struct {
	Content  string `json:"content" binding:"required"`
	ParentID *int   `json:"parent_id,omitempty"`
}
