package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beboard/backend/internal/services"
)

type CategoryHandler struct {
	db  *gorm.DB
	svc *services.CategoryService
}

func NewCategoryHandler(db *gorm.DB, svc *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{db: db, svc: svc}
}

// requireAdmin loads the current user and rejects non-admins.
func (h *CategoryHandler) requireAdmin(c *gin.Context) bool {
	user, ok := currentUser(c, h.db)
	if !ok {
		return false
	}
	if !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return false
	}
	return true
}

// List returns the active categories with their post counts.
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CategoryHandler) Get(c *gin.Context) {
	categoryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	category, err := h.svc.Get(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (h *CategoryHandler) Create(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	var input services.CreateCategoryRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func (h *CategoryHandler) Update(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	categoryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input services.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.svc.Update(c.Request.Context(), categoryID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	categoryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), categoryID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}
