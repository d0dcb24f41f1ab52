package services

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/beboard/backend/internal/apperr"
	"github.com/beboard/backend/internal/models"
	"github.com/beboard/backend/internal/notify"
)

// FriendService manages friend requests and friendships. A relation is a
// single row regardless of direction; duplicates are checked both ways.
type FriendService struct {
	db        *gorm.DB
	publisher notify.Publisher
}

func NewFriendService(db *gorm.DB, publisher notify.Publisher) *FriendService {
	return &FriendService{db: db, publisher: publisher}
}

// SendRequest creates a pending friend request to the user with the given
// email and notifies them.
func (s *FriendService) SendRequest(ctx context.Context, requester models.User, email, message string) (*models.Friend, error) {
	var addressee models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&addressee).Error; err != nil {
		return nil, apperr.ErrNotFound
	}

	if addressee.ID == requester.ID {
		return nil, fmt.Errorf("cannot befriend yourself: %w", apperr.ErrInvalidArgument)
	}

	var existing models.Friend
	err := s.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			requester.ID, addressee.ID, addressee.ID, requester.ID).
		Where("status IN ?", []models.FriendStatus{models.FriendPending, models.FriendAccepted}).
		First(&existing).Error
	if err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	request := models.Friend{
		RequesterID: requester.ID,
		AddresseeID: addressee.ID,
		Status:      models.FriendPending,
		Message:     message,
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, err
	}

	s.db.WithContext(ctx).Preload("Requester").Preload("Addressee").First(&request, request.ID)
	log.Printf("Friend request sent - from: %s, to: %s", requester.Nickname, addressee.Nickname)

	msg := notify.NewMessage(
		addressee.ID,
		fmt.Sprintf("%s sent you a friend request.", requester.Nickname),
		"/friends/requests",
		"FRIEND_REQUEST",
	)
	sendNotification(ctx, s.publisher, msg)

	return &request, nil
}

// Accept marks a pending request accepted. Only the addressee may accept.
func (s *FriendService) Accept(ctx context.Context, requestID, userID int) (*models.Friend, error) {
	var request models.Friend
	if err := s.db.WithContext(ctx).Preload("Requester").Preload("Addressee").First(&request, requestID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}
	if !request.IsAddressee(userID) {
		return nil, apperr.ErrForbidden
	}
	if request.Status != models.FriendPending {
		return nil, apperr.ErrInvalidState
	}

	request.Status = models.FriendAccepted
	if err := s.db.WithContext(ctx).Save(&request).Error; err != nil {
		return nil, err
	}

	log.Printf("Friend request accepted - from: %s, by: %s", request.Requester.Nickname, request.Addressee.Nickname)

	msg := notify.NewMessage(
		request.RequesterID,
		fmt.Sprintf("%s accepted your friend request.", request.Addressee.Nickname),
		"/friends",
		"FRIEND_ACCEPTED",
	)
	sendNotification(ctx, s.publisher, msg)

	return &request, nil
}

// Reject marks a pending request rejected. Only the addressee may reject.
func (s *FriendService) Reject(ctx context.Context, requestID, userID int) error {
	var request models.Friend
	if err := s.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		return apperr.ErrNotFound
	}
	if !request.IsAddressee(userID) {
		return apperr.ErrForbidden
	}
	if request.Status != models.FriendPending {
		return apperr.ErrInvalidState
	}

	request.Status = models.FriendRejected
	return s.db.WithContext(ctx).Save(&request).Error
}

// Remove deletes an accepted friendship. Either side may remove it.
func (s *FriendService) Remove(ctx context.Context, friendshipID, userID int) error {
	var friendship models.Friend
	if err := s.db.WithContext(ctx).First(&friendship, friendshipID).Error; err != nil {
		return apperr.ErrNotFound
	}
	if !friendship.IsRequester(userID) && !friendship.IsAddressee(userID) {
		return apperr.ErrForbidden
	}
	if friendship.Status != models.FriendAccepted {
		return apperr.ErrInvalidState
	}

	return s.db.WithContext(ctx).Delete(&friendship).Error
}

// ListFriends returns the user's accepted friendships, newest first.
func (s *FriendService) ListFriends(ctx context.Context, userID, page, size int) ([]models.Friend, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	base := s.db.WithContext(ctx).Model(&models.Friend{}).
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?", userID, userID, models.FriendAccepted)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var friends []models.Friend
	if err := base.Preload("Requester").Preload("Addressee").
		Order("updated_at desc").
		Limit(size).Offset((page - 1) * size).
		Find(&friends).Error; err != nil {
		return nil, 0, err
	}

	return friends, total, nil
}

// ReceivedRequests lists pending requests addressed to the user.
func (s *FriendService) ReceivedRequests(ctx context.Context, userID int) ([]models.Friend, error) {
	var requests []models.Friend
	err := s.db.WithContext(ctx).Preload("Requester").
		Where("addressee_id = ? AND status = ?", userID, models.FriendPending).
		Order("created_at desc").
		Find(&requests).Error
	return requests, err
}

// SentRequests lists pending requests the user has sent.
func (s *FriendService) SentRequests(ctx context.Context, userID int) ([]models.Friend, error) {
	var requests []models.Friend
	err := s.db.WithContext(ctx).Preload("Addressee").
		Where("requester_id = ? AND status = ?", userID, models.FriendPending).
		Order("created_at desc").
		Find(&requests).Error
	return requests, err
}

// SearchByEmail looks a user up by exact email.
func (s *FriendService) SearchByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ? AND active = ?", email, true).First(&user).Error; err != nil {
		return nil, apperr.ErrNotFound
	}
	return &user, nil
}
