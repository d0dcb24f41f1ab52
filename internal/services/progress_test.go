package services

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/models"
)

func newProgressFixture(t *testing.T) (*ProgressService, *ChallengeService, *clockwork.FakeClock, *capturePublisher, models.User, *models.Challenge) {
	t.Helper()
	resetDB(t)
	clock := clockwork.NewFakeClockAt(testEpoch)
	publisher := &capturePublisher{}
	challenges := NewChallengeService(testDB, clock, publisher)
	progress := NewProgressService(testDB, clock, publisher)

	creator := createUser(t, "creator")
	challenge, err := challenges.Create(context.Background(), challengeRequest(1, 30, 5), creator)
	require.NoError(t, err)

	return progress, challenges, clock, publisher, creator, challenge
}

func TestSubmitProgress(t *testing.T) {
	progress, _, _, _, creator, challenge := newProgressFixture(t)

	entry, err := progress.Submit(context.Background(), challenge.ID, creator.ID, true, "receipt.jpg")
	require.NoError(t, err)
	assert.True(t, entry.Completed)
	assert.Equal(t, models.VerificationPending, entry.VerificationStatus)
	assert.Equal(t, "receipt.jpg", entry.Proof)
}

func TestSubmitProgress_OncePerDay(t *testing.T) {
	progress, _, clock, _, creator, challenge := newProgressFixture(t)
	ctx := context.Background()

	_, err := progress.Submit(ctx, challenge.ID, creator.ID, true, "")
	require.NoError(t, err)

	_, err = progress.Submit(ctx, challenge.ID, creator.ID, false, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	// The next calendar day opens a fresh slot.
	clock.Advance(24 * time.Hour)
	_, err = progress.Submit(ctx, challenge.ID, creator.ID, true, "")
	require.NoError(t, err)
}

func TestSubmitProgress_NotParticipant(t *testing.T) {
	progress, _, _, _, _, challenge := newProgressFixture(t)

	outsider := createUser(t, "outsider")
	_, err := progress.Submit(context.Background(), challenge.ID, outsider.ID, true, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyProgress(t *testing.T) {
	progress, challenges, _, publisher, creator, challenge := newProgressFixture(t)
	ctx := context.Background()

	peer := createUser(t, "peer")
	_, err := challenges.Join(ctx, challenge.ID, money("5.00"), peer)
	require.NoError(t, err)

	entry, err := progress.Submit(ctx, challenge.ID, creator.ID, true, "")
	require.NoError(t, err)

	verified, err := progress.Verify(ctx, entry.ID, peer, true, "looks legit")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, verified.VerificationStatus)
	assert.Equal(t, "looks legit", verified.VerificationComment)
	require.NotNil(t, verified.VerifiedByID)
	assert.Equal(t, peer.ID, *verified.VerifiedByID)

	notified := publisher.byType("PROGRESS_VERIFIED")
	require.Len(t, notified, 1)
	assert.Equal(t, creator.ID, notified[0].RecipientID)
}

func TestVerifyProgress_SelfRejected(t *testing.T) {
	progress, _, _, _, creator, challenge := newProgressFixture(t)
	ctx := context.Background()

	entry, err := progress.Submit(ctx, challenge.ID, creator.ID, true, "")
	require.NoError(t, err)

	_, err = progress.Verify(ctx, entry.ID, creator, true, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestVerifyProgress_LastVerdictWins(t *testing.T) {
	progress, challenges, _, _, creator, challenge := newProgressFixture(t)
	ctx := context.Background()

	first := createUser(t, "first")
	second := createUser(t, "second")
	_, err := challenges.Join(ctx, challenge.ID, money("5.00"), first)
	require.NoError(t, err)
	_, err = challenges.Join(ctx, challenge.ID, money("5.00"), second)
	require.NoError(t, err)

	entry, err := progress.Submit(ctx, challenge.ID, creator.ID, true, "")
	require.NoError(t, err)

	_, err = progress.Verify(ctx, entry.ID, first, false, "blurry photo")
	require.NoError(t, err)

	final, err := progress.Verify(ctx, entry.ID, second, true, "clear enough")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, final.VerificationStatus)
	assert.Equal(t, second.ID, *final.VerifiedByID)
}

func TestListPendingForVerifier(t *testing.T) {
	progress, challenges, _, _, creator, challenge := newProgressFixture(t)
	ctx := context.Background()

	peer := createUser(t, "peer")
	_, err := challenges.Join(ctx, challenge.ID, money("5.00"), peer)
	require.NoError(t, err)

	// Entries from both sides; each should only see the other's.
	mine, err := progress.Submit(ctx, challenge.ID, creator.ID, true, "")
	require.NoError(t, err)
	theirs, err := progress.Submit(ctx, challenge.ID, peer.ID, true, "")
	require.NoError(t, err)

	forPeer, err := progress.ListPendingForVerifier(ctx, peer.ID)
	require.NoError(t, err)
	require.Len(t, forPeer, 1)
	assert.Equal(t, mine.ID, forPeer[0].ID)

	forCreator, err := progress.ListPendingForVerifier(ctx, creator.ID)
	require.NoError(t, err)
	require.Len(t, forCreator, 1)
	assert.Equal(t, theirs.ID, forCreator[0].ID)

	// An outsider shares no challenge and sees nothing.
	outsider := createUser(t, "outsider")
	forOutsider, err := progress.ListPendingForVerifier(ctx, outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, forOutsider)
}

func TestListPendingForChallenge(t *testing.T) {
	progress, challenges, _, _, creator, challenge := newProgressFixture(t)
	ctx := context.Background()

	peer := createUser(t, "peer")
	_, err := challenges.Join(ctx, challenge.ID, money("5.00"), peer)
	require.NoError(t, err)

	entry, err := progress.Submit(ctx, challenge.ID, creator.ID, true, "")
	require.NoError(t, err)
	_, err = progress.Submit(ctx, challenge.ID, peer.ID, true, "")
	require.NoError(t, err)

	_, err = progress.Verify(ctx, entry.ID, peer, true, "")
	require.NoError(t, err)

	pending, err := progress.ListPendingForChallenge(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := progress.ListForChallenge(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
