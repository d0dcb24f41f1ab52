package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/models"
	"github.com/beboard/backend/internal/notify"
	"github.com/beboard/backend/internal/services"
)

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Post         *PostHandler
	Comment      *CommentHandler
	Category     *CategoryHandler
	Challenge    *ChallengeHandler
	Friend       *FriendHandler
	Notification *NotificationHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db *gorm.DB, svc *services.Services, hub *notify.Hub, jwtSecret []byte) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(db, jwtSecret),
		User:         NewUserHandler(db),
		Post:         NewPostHandler(db, svc.Posts),
		Comment:      NewCommentHandler(db, svc.Comments),
		Category:     NewCategoryHandler(db, svc.Categories),
		Challenge:    NewChallengeHandler(db, svc.Challenges, svc.Progress),
		Friend:       NewFriendHandler(db, svc.Friends),
		Notification: NewNotificationHandler(hub),
	}
}

// respondError maps a domain error to its HTTP status.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrInvalidState),
		errors.Is(err, apperr.ErrAlreadyExists),
		errors.Is(err, apperr.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) int {
	raw, _ := c.Get("user_id")
	id, _ := raw.(int)
	return id
}

// currentUser loads the authenticated user row. Writes a 401 and returns
// false when the token's user no longer exists or was deactivated.
func currentUser(c *gin.Context, db *gorm.DB) (models.User, bool) {
	var user models.User
	if err := db.Where("active = ?", true).First(&user, currentUserID(c)).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return models.User{}, false
	}
	return user, true
}

// pathID parses the named path parameter as an integer id.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// pageParams reads ?page= and ?size= with defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}
