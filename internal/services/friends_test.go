package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/models"
)

func newFriendFixture(t *testing.T) (*FriendService, *capturePublisher, models.User, models.User) {
	t.Helper()
	resetDB(t)
	publisher := &capturePublisher{}
	svc := NewFriendService(testDB, publisher)
	alice := createUser(t, "alice")
	bob := createUser(t, "bob")
	return svc, publisher, alice, bob
}

func TestSendFriendRequest(t *testing.T) {
	svc, publisher, alice, bob := newFriendFixture(t)

	request, err := svc.SendRequest(context.Background(), alice, bob.Email, "hi!")
	require.NoError(t, err)
	assert.Equal(t, models.FriendPending, request.Status)
	assert.Equal(t, alice.ID, request.RequesterID)
	assert.Equal(t, bob.ID, request.AddresseeID)
	assert.Equal(t, "hi!", request.Message)

	notified := publisher.byType("FRIEND_REQUEST")
	require.Len(t, notified, 1)
	assert.Equal(t, bob.ID, notified[0].RecipientID)
}

func TestSendFriendRequest_Self(t *testing.T) {
	svc, _, alice, _ := newFriendFixture(t)

	_, err := svc.SendRequest(context.Background(), alice, alice.Email, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestSendFriendRequest_UnknownEmail(t *testing.T) {
	svc, _, alice, _ := newFriendFixture(t)

	_, err := svc.SendRequest(context.Background(), alice, "nobody@example.com", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSendFriendRequest_Duplicate(t *testing.T) {
	svc, _, alice, bob := newFriendFixture(t)
	ctx := context.Background()

	_, err := svc.SendRequest(ctx, alice, bob.Email, "")
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, alice, bob.Email, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	// The reverse direction counts as a duplicate too.
	_, err = svc.SendRequest(ctx, bob, alice.Email, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestSendFriendRequest_AfterRejection(t *testing.T) {
	svc, _, alice, bob := newFriendFixture(t)
	ctx := context.Background()

	request, err := svc.SendRequest(ctx, alice, bob.Email, "")
	require.NoError(t, err)
	require.NoError(t, svc.Reject(ctx, request.ID, bob.ID))

	// A rejected request does not block a fresh attempt.
	_, err = svc.SendRequest(ctx, alice, bob.Email, "second try")
	require.NoError(t, err)
}

func TestAcceptFriendRequest(t *testing.T) {
	svc, publisher, alice, bob := newFriendFixture(t)
	ctx := context.Background()

	request, err := svc.SendRequest(ctx, alice, bob.Email, "")
	require.NoError(t, err)

	// Only the addressee may accept.
	_, err = svc.Accept(ctx, request.ID, alice.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	accepted, err := svc.Accept(ctx, request.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendAccepted, accepted.Status)

	notified := publisher.byType("FRIEND_ACCEPTED")
	require.Len(t, notified, 1)
	assert.Equal(t, alice.ID, notified[0].RecipientID)

	// Accepting twice is a state error.
	_, err = svc.Accept(ctx, request.ID, bob.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestRemoveFriend(t *testing.T) {
	svc, _, alice, bob := newFriendFixture(t)
	ctx := context.Background()

	request, err := svc.SendRequest(ctx, alice, bob.Email, "")
	require.NoError(t, err)

	// A pending request cannot be removed as a friendship.
	assert.ErrorIs(t, svc.Remove(ctx, request.ID, alice.ID), apperr.ErrInvalidState)

	_, err = svc.Accept(ctx, request.ID, bob.ID)
	require.NoError(t, err)

	stranger := createUser(t, "stranger")
	assert.ErrorIs(t, svc.Remove(ctx, request.ID, stranger.ID), apperr.ErrForbidden)

	require.NoError(t, svc.Remove(ctx, request.ID, alice.ID))

	friends, total, err := svc.ListFriends(ctx, alice.ID, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, friends)
}

func TestListFriendsAndRequests(t *testing.T) {
	svc, _, alice, bob := newFriendFixture(t)
	ctx := context.Background()
	carol := createUser(t, "carol")

	accepted, err := svc.SendRequest(ctx, alice, bob.Email, "")
	require.NoError(t, err)
	_, err = svc.Accept(ctx, accepted.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, alice, carol.Email, "")
	require.NoError(t, err)

	friends, total, err := svc.ListFriends(ctx, alice.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, friends, 1)

	sent, err := svc.SentRequests(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, carol.ID, sent[0].AddresseeID)

	received, err := svc.ReceivedRequests(ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, alice.ID, received[0].RequesterID)
}

func TestSearchByEmail(t *testing.T) {
	svc, _, _, bob := newFriendFixture(t)
	ctx := context.Background()

	found, err := svc.SearchByEmail(ctx, bob.Email)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)

	require.NoError(t, testDB.Model(&models.User{}).Where("id = ?", bob.ID).Update("active", false).Error)
	_, err = svc.SearchByEmail(ctx, bob.Email)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
