package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/beboard/backend/internal/models"
	"github.com/beboard/backend/internal/services"
)

type ChallengeHandler struct {
	db       *gorm.DB
	svc      *services.ChallengeService
	progress *services.ProgressService
}

func NewChallengeHandler(db *gorm.DB, svc *services.ChallengeService, progress *services.ProgressService) *ChallengeHandler {
	return &ChallengeHandler{db: db, svc: svc, progress: progress}
}

// List returns challenges, filterable by ?category= and ?status=.
func (h *ChallengeHandler) List(c *gin.Context) {
	page, size := pageParams(c)

	challenges, total, err := h.svc.List(
		c.Request.Context(),
		c.Query("category"),
		models.ChallengeStatus(c.Query("status")),
		page, size,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges": challenges,
		"total":      total,
		"page":       page,
		"size":       size,
	})
}

// Get returns a challenge with its derived pot and success rate.
func (h *ChallengeHandler) Get(c *gin.Context) {
	challengeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	challenge, err := h.svc.Get(c.Request.Context(), challengeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge":    challenge,
		"total_pot":    challenge.TotalPot(),
		"success_rate": challenge.SuccessRate(),
	})
}

func (h *ChallengeHandler) Create(c *gin.Context) {
	var input models.CreateChallengeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	challenge, err := h.svc.Create(c.Request.Context(), input, user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"challenge": challenge})
}

// Join enrolls the current user with their chosen bet.
func (h *ChallengeHandler) Join(c *gin.Context) {
	challengeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input struct {
		BetAmount decimal.Decimal `json:"bet_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	participant, err := h.svc.Join(c.Request.Context(), challengeID, input.BetAmount, user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"participant": participant})
}

func (h *ChallengeHandler) Leave(c *gin.Context) {
	challengeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Leave(c.Request.Context(), challengeID, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left challenge"})
}

// Complete closes an in-progress challenge. Creator or admin only.
func (h *ChallengeHandler) Complete(c *gin.Context) {
	challengeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	challenge, err := h.svc.Get(c.Request.Context(), challengeID)
	if err != nil {
		respondError(c, err)
		return
	}
	if challenge.CreatorID != user.ID && !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the creator may complete a challenge"})
		return
	}

	completed, err := h.svc.Complete(c.Request.Context(), challengeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"challenge": completed})
}

func (h *ChallengeHandler) Cancel(c *gin.Context) {
	challengeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	challenge, err := h.svc.Cancel(c.Request.Context(), challengeID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"challenge": challenge})
}

// ListMine returns the challenges the current user participates in.
func (h *ChallengeHandler) ListMine(c *gin.Context) {
	page, size := pageParams(c)

	challenges, total, err := h.svc.ListForUser(c.Request.Context(), currentUserID(c), page, size)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges": challenges,
		"total":      total,
		"page":       page,
		"size":       size,
	})
}

// SubmitProgress records today's progress for the current user.
func (h *ChallengeHandler) SubmitProgress(c *gin.Context) {
	challengeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input struct {
		Completed bool   `json:"completed"`
		Proof     string `json:"proof"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.progress.Submit(c.Request.Context(), challengeID, currentUserID(c), input.Completed, input.Proof)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"progress": entry})
}

// ListProgress returns a challenge's progress entries; ?pending=true narrows
// to entries awaiting a verdict.
func (h *ChallengeHandler) ListProgress(c *gin.Context) {
	challengeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var (
		entries []models.ChallengeProgress
		err     error
	)
	if c.Query("pending") == "true" {
		entries, err = h.progress.ListPendingForChallenge(c.Request.Context(), challengeID)
	} else {
		entries, err = h.progress.ListForChallenge(c.Request.Context(), challengeID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": entries})
}

// VerifyProgress records the current user's verdict on a progress entry.
func (h *ChallengeHandler) VerifyProgress(c *gin.Context) {
	progressID, ok := pathID(c, "progressId")
	if !ok {
		return
	}

	var input struct {
		Verified bool   `json:"verified"`
		Comment  string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	entry, err := h.progress.Verify(c.Request.Context(), progressID, user, input.Verified, input.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": entry})
}

// ListVerifiable returns the pending entries the current user may verify.
func (h *ChallengeHandler) ListVerifiable(c *gin.Context) {
	entries, err := h.progress.ListPendingForVerifier(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": entries})
}
