package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/models"
)

var testEpoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newChallengeFixture(t *testing.T) (*ChallengeService, *clockwork.FakeClock, *capturePublisher, models.User) {
	t.Helper()
	resetDB(t)
	clock := clockwork.NewFakeClockAt(testEpoch)
	publisher := &capturePublisher{}
	svc := NewChallengeService(testDB, clock, publisher)
	creator := createUser(t, "creator")
	return svc, clock, publisher, creator
}

func challengeRequest(daysUntilStart, durationDays, maxParticipants int) models.CreateChallengeRequest {
	start := testEpoch.AddDate(0, 0, daysUntilStart)
	return models.CreateChallengeRequest{
		Title:              "save money",
		Description:        "no takeout for a month",
		Category:           "finance",
		GoalAmount:         money("300.00"),
		BetAmount:          money("10.00"),
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, durationDays),
		VerificationMethod: models.VerifyMutual,
		MaxParticipants:    maxParticipants,
	}
}

func TestCreateChallenge(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)

	challenge, err := svc.Create(context.Background(), challengeRequest(3, 30, 5), creator)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeRecruiting, challenge.Status)

	// The creator is enrolled up front with the challenge's own bet.
	require.Len(t, challenge.Participants, 1)
	assert.Equal(t, creator.ID, challenge.Participants[0].UserID)
	assert.True(t, challenge.Participants[0].BetAmount.Equal(money("10.00")))
}

func TestCreateChallenge_EndBeforeStart(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)

	req := challengeRequest(3, 30, 5)
	req.EndDate = req.StartDate.AddDate(0, 0, -1)
	_, err := svc.Create(context.Background(), req, creator)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	// Same-day start and end is rejected too.
	req.EndDate = req.StartDate
	_, err = svc.Create(context.Background(), req, creator)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestCreateChallenge_TooFewSlots(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)

	_, err := svc.Create(context.Background(), challengeRequest(3, 30, 1), creator)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestJoin(t *testing.T) {
	svc, _, publisher, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(3, 30, 5), creator)
	require.NoError(t, err)

	joiner := createUser(t, "joiner")
	participant, err := svc.Join(ctx, challenge.ID, money("25.00"), joiner)
	require.NoError(t, err)
	assert.True(t, participant.BetAmount.Equal(money("25.00")))
	assert.Equal(t, models.ParticipantActive, participant.Status)

	notified := publisher.byType("CHALLENGE_JOIN")
	require.Len(t, notified, 1)
	assert.Equal(t, creator.ID, notified[0].RecipientID)
}

func TestJoin_Duplicate(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(3, 30, 5), creator)
	require.NoError(t, err)

	joiner := createUser(t, "joiner")
	_, err = svc.Join(ctx, challenge.ID, money("5.00"), joiner)
	require.NoError(t, err)

	_, err = svc.Join(ctx, challenge.ID, money("5.00"), joiner)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	// The auto-enrolled creator cannot join twice either.
	_, err = svc.Join(ctx, challenge.ID, money("5.00"), creator)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestJoin_CapacityExceeded(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(3, 30, 2), creator)
	require.NoError(t, err)

	_, err = svc.Join(ctx, challenge.ID, money("5.00"), createUser(t, "second"))
	require.NoError(t, err)

	_, err = svc.Join(ctx, challenge.ID, money("5.00"), createUser(t, "third"))
	assert.ErrorIs(t, err, apperr.ErrCapacityExceeded)
}

func TestJoin_ConcurrentLastSlot(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(3, 30, 2), creator)
	require.NoError(t, err)

	users := make([]models.User, 5)
	for i := range users {
		users[i] = createUser(t, "racer")
	}

	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, u := range users {
		wg.Add(1)
		go func(i int, u models.User) {
			defer wg.Done()
			_, errs[i] = svc.Join(ctx, challenge.ID, money("5.00"), u)
		}(i, u)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperr.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one racer should win the last slot")

	var active int64
	testDB.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND status = ?", challenge.ID, models.ParticipantActive).
		Count(&active)
	assert.EqualValues(t, 2, active)
}

func TestJoin_ClosedOnStartDate(t *testing.T) {
	svc, clock, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(1, 30, 5), creator)
	require.NoError(t, err)

	// Once the start date arrives, admission closes even before the
	// scheduler flips the status.
	clock.Advance(24 * time.Hour)

	_, err = svc.Join(ctx, challenge.ID, money("5.00"), createUser(t, "late"))
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestJoin_NegativeBet(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(3, 30, 5), creator)
	require.NoError(t, err)

	_, err = svc.Join(ctx, challenge.ID, money("-1.00"), createUser(t, "cheater"))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestLeave(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(3, 30, 5), creator)
	require.NoError(t, err)

	joiner := createUser(t, "joiner")
	_, err = svc.Join(ctx, challenge.ID, money("5.00"), joiner)
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, challenge.ID, joiner.ID))

	var remaining int64
	testDB.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challenge.ID, joiner.ID).
		Count(&remaining)
	assert.Zero(t, remaining)
}

func TestLeave_CreatorForbidden(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(3, 30, 5), creator)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Leave(ctx, challenge.ID, creator.ID), apperr.ErrForbidden)
}

func TestLeave_AfterStart(t *testing.T) {
	svc, clock, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(1, 30, 5), creator)
	require.NoError(t, err)

	joiner := createUser(t, "joiner")
	_, err = svc.Join(ctx, challenge.ID, money("5.00"), joiner)
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	started, err := svc.StartDueChallenges(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, started)

	assert.ErrorIs(t, svc.Leave(ctx, challenge.ID, joiner.ID), apperr.ErrInvalidState)
}

func TestComplete(t *testing.T) {
	svc, clock, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(1, 30, 5), creator)
	require.NoError(t, err)

	// Not yet in progress.
	_, err = svc.Complete(ctx, challenge.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	clock.Advance(48 * time.Hour)
	_, err = svc.StartDueChallenges(ctx)
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeCompleted, completed.Status)

	// Completing twice is a no-op state error.
	_, err = svc.Complete(ctx, challenge.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestCancel(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(3, 30, 5), creator)
	require.NoError(t, err)

	stranger := createUser(t, "stranger")
	_, err = svc.Cancel(ctx, challenge.ID, stranger.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	cancelled, err := svc.Cancel(ctx, challenge.ID, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeCancelled, cancelled.Status)

	// A cancelled challenge cannot be cancelled again or joined.
	_, err = svc.Cancel(ctx, challenge.ID, creator.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = svc.Join(ctx, challenge.ID, money("5.00"), stranger)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestStartDueChallenges(t *testing.T) {
	svc, clock, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	due, err := svc.Create(ctx, challengeRequest(1, 30, 5), creator)
	require.NoError(t, err)
	notDue, err := svc.Create(ctx, challengeRequest(10, 30, 5), creator)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)

	started, err := svc.StartDueChallenges(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, started)

	fresh, err := svc.Get(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeInProgress, fresh.Status)

	fresh, err = svc.Get(ctx, notDue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeRecruiting, fresh.Status)

	// Idempotent: a second sweep finds nothing to promote.
	started, err = svc.StartDueChallenges(ctx)
	require.NoError(t, err)
	assert.Zero(t, started)
}

func TestListForUser(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, challengeRequest(3, 30, 5), creator)
	require.NoError(t, err)
	_, err = svc.Create(ctx, challengeRequest(3, 30, 5), createUser(t, "other"))
	require.NoError(t, err)

	challenges, total, err := svc.ListForUser(ctx, creator.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, challenges, 1)
	assert.Equal(t, first.ID, challenges[0].ID)
}

func TestTotalPot(t *testing.T) {
	svc, _, _, creator := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := svc.Create(ctx, challengeRequest(3, 30, 5), creator)
	require.NoError(t, err)
	_, err = svc.Join(ctx, challenge.ID, money("25.50"), createUser(t, "joiner"))
	require.NoError(t, err)

	fresh, err := svc.Get(ctx, challenge.ID)
	require.NoError(t, err)
	assert.True(t, fresh.TotalPot().Equal(money("35.50")))
}
