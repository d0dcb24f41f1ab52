package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ChallengeStatus string

const (
	ChallengeRecruiting ChallengeStatus = "RECRUITING"
	ChallengeInProgress ChallengeStatus = "IN_PROGRESS"
	ChallengeCompleted  ChallengeStatus = "COMPLETED"
	ChallengeCancelled  ChallengeStatus = "CANCELLED"
)

type VerificationMethod string

const (
	VerifyByPhoto VerificationMethod = "PHOTO"
	VerifyByText  VerificationMethod = "TEXT"
	VerifyMutual  VerificationMethod = "MUTUAL"
	VerifyByAdmin VerificationMethod = "ADMIN"
)

type ParticipantStatus string

const (
	ParticipantActive    ParticipantStatus = "ACTIVE"
	ParticipantSuccess   ParticipantStatus = "SUCCESS"
	ParticipantFailure   ParticipantStatus = "FAILURE"
	ParticipantWithdrawn ParticipantStatus = "WITHDRAWN"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

type Challenge struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"not null;size:200" json:"title"`
	Description string `json:"description"`
	Category    string `gorm:"index;not null;size:50" json:"category"`

	GoalAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"goal_amount"`
	BetAmount  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"bet_amount"`

	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`

	Status             ChallengeStatus    `gorm:"type:varchar(20);index;not null;default:RECRUITING" json:"status"`
	VerificationMethod VerificationMethod `gorm:"type:varchar(10);not null" json:"verification_method"`
	MaxParticipants    int                `gorm:"not null" json:"max_participants"`

	CreatorID int  `gorm:"index;not null" json:"creator_id"`
	Creator   User `gorm:"foreignKey:CreatorID" json:"creator"`

	Participants []ChallengeParticipant `gorm:"foreignKey:ChallengeID" json:"participants,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalPot sums the bet amounts of the loaded participants.
func (c *Challenge) TotalPot() decimal.Decimal {
	pot := decimal.Zero
	for _, p := range c.Participants {
		pot = pot.Add(p.BetAmount)
	}
	return pot
}

// SuccessRate is the share of loaded participants that finished with SUCCESS,
// as a percentage. Zero when there are no participants.
func (c *Challenge) SuccessRate() float64 {
	if len(c.Participants) == 0 {
		return 0
	}
	var success int
	for _, p := range c.Participants {
		if p.Status == ParticipantSuccess {
			success++
		}
	}
	return float64(success) / float64(len(c.Participants)) * 100.0
}

type ChallengeParticipant struct {
	ID          int `gorm:"primaryKey" json:"id"`
	ChallengeID int `gorm:"uniqueIndex:idx_participant_challenge_user;not null" json:"challenge_id"`
	UserID      int `gorm:"uniqueIndex:idx_participant_challenge_user;not null" json:"user_id"`

	BetAmount decimal.Decimal   `gorm:"type:numeric(10,2);not null" json:"bet_amount"`
	Status    ParticipantStatus `gorm:"type:varchar(10);index;not null;default:ACTIVE" json:"status"`
	JoinedAt  time.Time         `gorm:"not null" json:"joined_at"`

	User User `gorm:"foreignKey:UserID" json:"user"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChallengeProgress struct {
	ID            int       `gorm:"primaryKey" json:"id"`
	ParticipantID int       `gorm:"uniqueIndex:idx_progress_participant_date;not null" json:"participant_id"`
	Date          time.Time `gorm:"type:date;uniqueIndex:idx_progress_participant_date;not null" json:"date"`

	Completed bool   `gorm:"not null" json:"completed"`
	Proof     string `json:"proof"`

	VerificationStatus  VerificationStatus `gorm:"type:varchar(10);index;not null;default:PENDING" json:"verification_status"`
	VerificationComment string             `json:"verification_comment"`
	VerifiedByID        *int               `json:"verified_by_id,omitempty"`

	Participant ChallengeParticipant `gorm:"foreignKey:ParticipantID" json:"participant"`
	VerifiedBy  *User                `gorm:"foreignKey:VerifiedByID" json:"verified_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateChallengeRequest struct {
	Title              string             `json:"title" binding:"required"`
	Description        string             `json:"description"`
	Category           string             `json:"category" binding:"required"`
	GoalAmount         decimal.Decimal    `json:"goal_amount" binding:"required"`
	BetAmount          decimal.Decimal    `json:"bet_amount" binding:"required"`
	StartDate          time.Time          `json:"start_date" binding:"required" time_format:"2006-01-02"`
	EndDate            time.Time          `json:"end_date" binding:"required" time_format:"2006-01-02"`
	VerificationMethod VerificationMethod `json:"verification_method" binding:"required"`
	MaxParticipants    int                `json:"max_participants" binding:"required,min=2"`
}
