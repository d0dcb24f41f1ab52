package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beboard/backend/internal/models"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// GetProfile returns a user's public profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var user models.User
	if err := h.db.Where("active = ?", true).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var postCount int64
	h.db.Model(&models.Post{}).Where("author_id = ? AND deleted = ?", user.ID, false).Count(&postCount)

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"nickname":   user.Nickname,
		"bio":        user.Bio,
		"avatar":     user.Avatar,
		"post_count": postCount,
		"created_at": user.CreatedAt,
	})
}

// UpdateProfile updates the current user's own profile fields
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var input struct {
		Nickname *string `json:"nickname"`
		Bio      *string `json:"bio"`
		Avatar   *string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	if input.Nickname != nil && strings.TrimSpace(*input.Nickname) != "" && *input.Nickname != user.Nickname {
		var taken int64
		h.db.Model(&models.User{}).Where("nickname = ? AND id <> ?", *input.Nickname, user.ID).Count(&taken)
		if taken > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Nickname already exists"})
			return
		}
		user.Nickname = *input.Nickname
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}
	if input.Avatar != nil {
		user.Avatar = *input.Avatar
	}

	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"nickname": user.Nickname,
		"bio":      user.Bio,
		"avatar":   user.Avatar,
	})
}

// Deactivate soft-disables the current user's account.
func (h *UserHandler) Deactivate(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	if err := h.db.Model(&user).Update("active", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deactivated"})
}
