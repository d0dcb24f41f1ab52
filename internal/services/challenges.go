package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/database"
	"github.com/beboard/backend/internal/models"
	"github.com/beboard/backend/internal/notify"
)

// ChallengeService owns the challenge lifecycle:
//
//	RECRUITING --(start date reached)--> IN_PROGRESS --(Complete)--> COMPLETED
//	RECRUITING --(creator Cancel)-----> CANCELLED
//
// No other transitions exist. Admission is bounded by MaxParticipants and
// closes once the start date arrives.
type ChallengeService struct {
	db        *gorm.DB
	clock     clockwork.Clock
	publisher notify.Publisher
}

func NewChallengeService(db *gorm.DB, clock clockwork.Clock, publisher notify.Publisher) *ChallengeService {
	return &ChallengeService{db: db, clock: clock, publisher: publisher}
}

// Create persists a new challenge in RECRUITING and auto-enrolls the creator
// as its first participant, betting the challenge's own bet amount.
func (s *ChallengeService) Create(ctx context.Context, req models.CreateChallengeRequest, creator models.User) (*models.Challenge, error) {
	start := dateOnly(req.StartDate)
	end := dateOnly(req.EndDate)
	if !end.After(start) {
		return nil, fmt.Errorf("end date must be after start date: %w", apperr.ErrInvalidArgument)
	}
	if req.BetAmount.IsNegative() || req.GoalAmount.IsNegative() {
		return nil, apperr.ErrInvalidArgument
	}
	if req.MaxParticipants < 2 {
		return nil, apperr.ErrInvalidArgument
	}

	challenge := models.Challenge{
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		GoalAmount:         req.GoalAmount,
		BetAmount:          req.BetAmount,
		StartDate:          start,
		EndDate:            end,
		Status:             models.ChallengeRecruiting,
		VerificationMethod: req.VerificationMethod,
		MaxParticipants:    req.MaxParticipants,
		CreatorID:          creator.ID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&challenge).Error; err != nil {
			return err
		}
		participant := models.ChallengeParticipant{
			ChallengeID: challenge.ID,
			UserID:      creator.ID,
			BetAmount:   challenge.BetAmount,
			Status:      models.ParticipantActive,
			JoinedAt:    s.clock.Now(),
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Challenge created - ID: %d, title: %s, creator: %s", challenge.ID, challenge.Title, creator.Nickname)

	s.db.WithContext(ctx).Preload("Creator").Preload("Participants.User").First(&challenge, challenge.ID)
	return &challenge, nil
}

// Join enrolls a user into a recruiting challenge. The challenge row is
// locked for the duration of the capacity check so concurrent joins for the
// last slot serialize; the unique (challenge, user) index backstops duplicate
// joins that slip past the pre-check.
func (s *ChallengeService) Join(ctx context.Context, challengeID int, betAmount decimal.Decimal, user models.User) (*models.ChallengeParticipant, error) {
	if betAmount.IsNegative() {
		return nil, apperr.ErrInvalidArgument
	}

	today := dateOnly(s.clock.Now())

	var participant models.ChallengeParticipant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var challenge models.Challenge
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&challenge, challengeID).Error; err != nil {
			return apperr.ErrNotFound
		}

		// A challenge whose start date has arrived is no longer joinable even
		// if the scheduler has not flipped it to IN_PROGRESS yet.
		if challenge.Status != models.ChallengeRecruiting || !challenge.StartDate.After(today) {
			return apperr.ErrInvalidState
		}

		var joined int64
		if err := tx.Model(&models.ChallengeParticipant{}).
			Where("challenge_id = ? AND user_id = ?", challengeID, user.ID).
			Count(&joined).Error; err != nil {
			return err
		}
		if joined > 0 {
			return apperr.ErrAlreadyExists
		}

		var active int64
		if err := tx.Model(&models.ChallengeParticipant{}).
			Where("challenge_id = ? AND status = ?", challengeID, models.ParticipantActive).
			Count(&active).Error; err != nil {
			return err
		}
		if active >= int64(challenge.MaxParticipants) {
			return apperr.ErrCapacityExceeded
		}

		participant = models.ChallengeParticipant{
			ChallengeID: challengeID,
			UserID:      user.ID,
			BetAmount:   betAmount,
			Status:      models.ParticipantActive,
			JoinedAt:    s.clock.Now(),
		}
		if err := tx.Create(&participant).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.ErrAlreadyExists
			}
			return err
		}

		if challenge.CreatorID != user.ID {
			msg := notify.NewMessage(
				challenge.CreatorID,
				fmt.Sprintf("%s joined your challenge '%s'.", user.Nickname, challenge.Title),
				fmt.Sprintf("/challenges/%d", challenge.ID),
				"CHALLENGE_JOIN",
			)
			sendNotification(ctx, s.publisher, msg)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Challenge joined - challenge: %d, user: %s, bet: %s", challengeID, user.Nickname, betAmount)
	return &participant, nil
}

// Leave removes a participant from a still-recruiting challenge, along with
// their progress rows. The creator cannot leave their own challenge.
func (s *ChallengeService) Leave(ctx context.Context, challengeID, userID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var participant models.ChallengeParticipant
		if err := tx.Where("challenge_id = ? AND user_id = ?", challengeID, userID).First(&participant).Error; err != nil {
			return apperr.ErrNotFound
		}

		var challenge models.Challenge
		if err := tx.First(&challenge, challengeID).Error; err != nil {
			return apperr.ErrNotFound
		}
		if challenge.Status != models.ChallengeRecruiting {
			return apperr.ErrInvalidState
		}
		if challenge.CreatorID == userID {
			return apperr.ErrForbidden
		}

		if err := tx.Where("participant_id = ?", participant.ID).Delete(&models.ChallengeProgress{}).Error; err != nil {
			return err
		}
		return tx.Delete(&participant).Error
	})
}

// Complete transitions an in-progress challenge to COMPLETED.
func (s *ChallengeService) Complete(ctx context.Context, challengeID int) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&challenge, challengeID).Error; err != nil {
			return apperr.ErrNotFound
		}
		if challenge.Status != models.ChallengeInProgress {
			return apperr.ErrInvalidState
		}
		challenge.Status = models.ChallengeCompleted
		return tx.Save(&challenge).Error
	})
	if err != nil {
		return nil, err
	}

	// TODO: distribute the pot to successful participants once the payout
	// rules are decided.

	log.Printf("Challenge completed - ID: %d, title: %s", challenge.ID, challenge.Title)
	return &challenge, nil
}

// Cancel lets the creator call off a challenge that is still recruiting.
func (s *ChallengeService) Cancel(ctx context.Context, challengeID, userID int) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&challenge, challengeID).Error; err != nil {
			return apperr.ErrNotFound
		}
		if challenge.CreatorID != userID {
			return apperr.ErrForbidden
		}
		if challenge.Status != models.ChallengeRecruiting {
			return apperr.ErrInvalidState
		}
		challenge.Status = models.ChallengeCancelled
		return tx.Save(&challenge).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Challenge cancelled - ID: %d, title: %s", challenge.ID, challenge.Title)
	return &challenge, nil
}

// Get returns a challenge with its creator and participants loaded, so the
// derived pot and success rate are computable by the caller.
func (s *ChallengeService) Get(ctx context.Context, challengeID int) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := s.db.WithContext(ctx).
		Preload("Creator").Preload("Participants.User").
		First(&challenge, challengeID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}
	return &challenge, nil
}

// List returns challenges newest-first, optionally filtered by category
// and/or status.
func (s *ChallengeService) List(ctx context.Context, category string, status models.ChallengeStatus, page, size int) ([]models.Challenge, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Challenge{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var challenges []models.Challenge
	if err := query.Preload("Creator").Preload("Participants").
		Order("created_at desc").
		Limit(size).Offset((page - 1) * size).
		Find(&challenges).Error; err != nil {
		return nil, 0, err
	}

	return challenges, total, nil
}

// ListForUser returns the challenges the user participates in (their own
// included, since creators are auto-enrolled).
func (s *ChallengeService) ListForUser(ctx context.Context, userID, page, size int) ([]models.Challenge, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	base := s.db.WithContext(ctx).Model(&models.Challenge{}).
		Joins("JOIN challenge_participants cp ON cp.challenge_id = challenges.id").
		Where("cp.user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var challenges []models.Challenge
	if err := base.Preload("Creator").Preload("Participants").
		Order("challenges.created_at desc").
		Limit(size).Offset((page - 1) * size).
		Find(&challenges).Error; err != nil {
		return nil, 0, err
	}

	return challenges, total, nil
}

// StartDueChallenges promotes every RECRUITING challenge whose start date has
// arrived to IN_PROGRESS and reports how many rows changed.
func (s *ChallengeService) StartDueChallenges(ctx context.Context) (int64, error) {
	today := dateOnly(s.clock.Now())

	res := s.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("status = ? AND start_date <= ?", models.ChallengeRecruiting, today).
		Update("status", models.ChallengeInProgress)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
