package models

import "time"

type Category struct {
	ID           int    `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"unique;not null;size:50" json:"name"`
	Slug         string `gorm:"unique;not null" json:"slug"`
	Description  string `json:"description"`
	Active       bool   `gorm:"not null;default:true" json:"active"`
	DisplayOrder int    `gorm:"not null;default:0" json:"display_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
