package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/database"
	"github.com/beboard/backend/internal/models"
	"github.com/beboard/backend/internal/notify"
)

// ProgressService owns daily progress submissions and their peer
// verification. One submission per participant per calendar day; nobody
// verifies their own entry.
type ProgressService struct {
	db        *gorm.DB
	clock     clockwork.Clock
	publisher notify.Publisher
}

func NewProgressService(db *gorm.DB, clock clockwork.Clock, publisher notify.Publisher) *ProgressService {
	return &ProgressService{db: db, clock: clock, publisher: publisher}
}

// Submit records today's progress for the user's participation in the
// challenge. The (participant, date) unique index closes the check-then-insert
// race; a second submission on the same day fails either way.
func (s *ProgressService) Submit(ctx context.Context, challengeID, userID int, completed bool, proof string) (*models.ChallengeProgress, error) {
	var participant models.ChallengeParticipant
	if err := s.db.WithContext(ctx).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		First(&participant).Error; err != nil {
		return nil, apperr.ErrNotFound
	}

	today := dateOnly(s.clock.Now())

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.ChallengeProgress{}).
		Where("participant_id = ? AND date = ?", participant.ID, today).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperr.ErrAlreadyExists
	}

	progress := models.ChallengeProgress{
		ParticipantID:      participant.ID,
		Date:               today,
		Completed:          completed,
		Proof:              proof,
		VerificationStatus: models.VerificationPending,
	}

	if err := s.db.WithContext(ctx).Create(&progress).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, err
	}

	log.Printf("Progress submitted - challenge: %d, user: %d, completed: %t", challengeID, userID, completed)
	return &progress, nil
}

// Verify records a verdict on a progress entry. The submitter cannot verify
// their own entry. A later verdict overwrites an earlier one; the last
// verifier wins.
func (s *ProgressService) Verify(ctx context.Context, progressID int, verifier models.User, verified bool, comment string) (*models.ChallengeProgress, error) {
	var progress models.ChallengeProgress
	if err := s.db.WithContext(ctx).
		Preload("Participant").
		First(&progress, progressID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}

	if progress.Participant.UserID == verifier.ID {
		return nil, fmt.Errorf("cannot verify own progress: %w", apperr.ErrInvalidState)
	}

	status := models.VerificationVerified
	if !verified {
		status = models.VerificationRejected
	}

	progress.VerificationStatus = status
	progress.VerificationComment = comment
	progress.VerifiedByID = &verifier.ID

	if err := s.db.WithContext(ctx).Save(&progress).Error; err != nil {
		return nil, err
	}

	log.Printf("Progress verified - ID: %d, verifier: %s, verdict: %s", progressID, verifier.Nickname, status)

	msg := notify.NewMessage(
		progress.Participant.UserID,
		fmt.Sprintf("%s reviewed your progress: %s.", verifier.Nickname, status),
		fmt.Sprintf("/challenges/%d", progress.Participant.ChallengeID),
		"PROGRESS_VERIFIED",
	)
	sendNotification(ctx, s.publisher, msg)

	return &progress, nil
}

// ListForChallenge returns a challenge's progress entries, newest date first.
func (s *ProgressService) ListForChallenge(ctx context.Context, challengeID int) ([]models.ChallengeProgress, error) {
	var entries []models.ChallengeProgress
	err := s.db.WithContext(ctx).
		Preload("Participant.User").Preload("VerifiedBy").
		Joins("JOIN challenge_participants cp ON cp.id = challenge_progresses.participant_id").
		Where("cp.challenge_id = ?", challengeID).
		Order("challenge_progresses.date desc").
		Find(&entries).Error
	return entries, err
}

// ListPendingForChallenge returns the challenge's entries still awaiting a
// verdict.
func (s *ProgressService) ListPendingForChallenge(ctx context.Context, challengeID int) ([]models.ChallengeProgress, error) {
	var entries []models.ChallengeProgress
	err := s.db.WithContext(ctx).
		Preload("Participant.User").
		Joins("JOIN challenge_participants cp ON cp.id = challenge_progresses.participant_id").
		Where("cp.challenge_id = ? AND challenge_progresses.verification_status = ?", challengeID, models.VerificationPending).
		Order("challenge_progresses.date desc").
		Find(&entries).Error
	return entries, err
}

// ListPendingForVerifier returns pending entries the user may verify: entries
// from challenges the user also participates in, excluding their own.
func (s *ProgressService) ListPendingForVerifier(ctx context.Context, userID int) ([]models.ChallengeProgress, error) {
	var entries []models.ChallengeProgress
	err := s.db.WithContext(ctx).
		Preload("Participant.User").
		Joins("JOIN challenge_participants cp ON cp.id = challenge_progresses.participant_id").
		Where("challenge_progresses.verification_status = ?", models.VerificationPending).
		Where("cp.user_id <> ?", userID).
		Where("cp.challenge_id IN (?)",
			s.db.Model(&models.ChallengeParticipant{}).Select("challenge_id").Where("user_id = ?", userID)).
		Order("challenge_progresses.date desc").
		Find(&entries).Error
	return entries, err
}
