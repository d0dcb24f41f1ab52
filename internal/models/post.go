package models

import "time"

type Post struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	Title      string `gorm:"not null;size:200" json:"title"`
	Content    string `gorm:"not null" json:"content"`
	ViewCount  int    `gorm:"not null;default:0" json:"view_count"`
	CategoryID int    `gorm:"index;not null" json:"category_id"`
	AuthorID   int    `gorm:"index;not null" json:"author_id"`
	Deleted    bool   `gorm:"not null;default:false" json:"-"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category"`
	Author   User     `gorm:"foreignKey:AuthorID" json:"author"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bookmark marks a post as saved by a user, once per (user, post).
type Bookmark struct {
	ID     int `gorm:"primaryKey" json:"id"`
	UserID int `gorm:"uniqueIndex:idx_bookmark_user_post;not null" json:"user_id"`
	PostID int `gorm:"uniqueIndex:idx_bookmark_user_post;not null" json:"post_id"`

	CreatedAt time.Time `json:"created_at"`
}

type CreatePostRequest struct {
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content" binding:"required"`
	CategoryID int    `json:"category_id" binding:"required"`
}
