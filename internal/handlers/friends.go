package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beboard/backend/internal/services"
)

type FriendHandler struct {
	db  *gorm.DB
	svc *services.FriendService
}

func NewFriendHandler(db *gorm.DB, svc *services.FriendService) *FriendHandler {
	return &FriendHandler{db: db, svc: svc}
}

// SendRequest sends a friend request to the user with the given email.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var input struct {
		Email   string `json:"email" binding:"required,email"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	request, err := h.svc.SendRequest(c.Request.Context(), user, input.Email, input.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"request": request})
}

func (h *FriendHandler) Accept(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	request, err := h.svc.Accept(c.Request.Context(), requestID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request})
}

func (h *FriendHandler) Reject(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Reject(c.Request.Context(), requestID, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend request rejected"})
}

func (h *FriendHandler) Remove(c *gin.Context) {
	friendshipID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Remove(c.Request.Context(), friendshipID, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend removed"})
}

func (h *FriendHandler) ListFriends(c *gin.Context) {
	page, size := pageParams(c)

	friends, total, err := h.svc.ListFriends(c.Request.Context(), currentUserID(c), page, size)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"friends": friends,
		"total":   total,
		"page":    page,
		"size":    size,
	})
}

// ListRequests returns pending requests; ?direction=sent flips to outgoing.
func (h *FriendHandler) ListRequests(c *gin.Context) {
	userID := currentUserID(c)

	var err error
	var requests interface{}
	if c.Query("direction") == "sent" {
		requests, err = h.svc.SentRequests(c.Request.Context(), userID)
	} else {
		requests, err = h.svc.ReceivedRequests(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// SearchUser looks a user up by exact email, for sending friend requests.
func (h *FriendHandler) SearchUser(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter required"})
		return
	}

	user, err := h.svc.SearchByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"nickname": user.Nickname,
			"email":    user.Email,
			"avatar":   user.Avatar,
		},
	})
}
