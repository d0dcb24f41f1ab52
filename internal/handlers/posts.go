package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beboard/backend/internal/models"
	"github.com/beboard/backend/internal/services"
)

type PostHandler struct {
	db  *gorm.DB
	svc *services.PostService
}

func NewPostHandler(db *gorm.DB, svc *services.PostService) *PostHandler {
	return &PostHandler{db: db, svc: svc}
}

// List returns posts, filterable by ?category=, ?search=, ?sort=popular.
func (h *PostHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	categoryID, _ := strconv.Atoi(c.Query("category"))

	posts, total, err := h.svc.List(c.Request.Context(), services.ListPostsQuery{
		CategoryID: categoryID,
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
		Page:       page,
		Size:       size,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// Get returns a single post and bumps its view counter.
func (h *PostHandler) Get(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}

	post, err := h.svc.Get(c.Request.Context(), postID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.svc.IncrementViews(c.Request.Context(), postID)
	post.ViewCount++

	c.JSON(http.StatusOK, gin.H{
		"post":          post,
		"comment_count": h.svc.CountComments(c.Request.Context(), postID),
	})
}

func (h *PostHandler) Create(c *gin.Context) {
	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	post, err := h.svc.Create(c.Request.Context(), input, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"post": post})
}

func (h *PostHandler) Update(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.svc.Update(c.Request.Context(), postID, input, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *PostHandler) Delete(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), postID, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (h *PostHandler) Bookmark(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}

	created, err := h.svc.AddBookmark(c.Request.Context(), postID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"bookmarked": true})
}

func (h *PostHandler) Unbookmark(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}

	removed, err := h.svc.RemoveBookmark(c.Request.Context(), postID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bookmark not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookmarked": false})
}

func (h *PostHandler) ListBookmarks(c *gin.Context) {
	page, size := pageParams(c)

	posts, total, err := h.svc.ListBookmarked(c.Request.Context(), currentUserID(c), page, size)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"total": total,
		"page":  page,
		"size":  size,
	})
}
