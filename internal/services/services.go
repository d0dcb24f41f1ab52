package services

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/beboard/backend/internal/cache"
	"github.com/beboard/backend/internal/notify"
)

// Services bundles the domain services behind a single constructor.
type Services struct {
	Categories *CategoryService
	Posts      *PostService
	Comments   *CommentService
	Challenges *ChallengeService
	Progress   *ProgressService
	Friends    *FriendService
}

func New(db *gorm.DB, clk clockwork.Clock, publisher notify.Publisher, store cache.Cache) *Services {
	return &Services{
		Categories: NewCategoryService(db, store),
		Posts:      NewPostService(db),
		Comments:   NewCommentService(db, publisher),
		Challenges: NewChallengeService(db, clk, publisher),
		Progress:   NewProgressService(db, clk, publisher),
		Friends:    NewFriendService(db, publisher),
	}
}

// sendNotification publishes best-effort: a relay failure is logged and never
// surfaced to the request that triggered it.
func sendNotification(ctx context.Context, publisher notify.Publisher, msg notify.Message) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, msg); err != nil {
		log.Printf("Failed to deliver notification to user %d: %v", msg.RecipientID, err)
	}
}

// dateOnly truncates t to its calendar date, normalized to UTC midnight so
// date columns compare consistently.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
