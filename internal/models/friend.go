package models

import "time"

type FriendStatus string

const (
	FriendPending  FriendStatus = "PENDING"
	FriendAccepted FriendStatus = "ACCEPTED"
	FriendRejected FriendStatus = "REJECTED"
)

// Friend is a friendship edge between the user who sent the request and the
// one who received it.
type Friend struct {
	ID          int          `gorm:"primaryKey" json:"id"`
	RequesterID int          `gorm:"index;not null" json:"requester_id"`
	AddresseeID int          `gorm:"index;not null" json:"addressee_id"`
	Status      FriendStatus `gorm:"type:varchar(10);index;not null;default:PENDING" json:"status"`
	Message     string       `json:"message"`

	Requester User `gorm:"foreignKey:RequesterID" json:"requester"`
	Addressee User `gorm:"foreignKey:AddresseeID" json:"addressee"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *Friend) IsRequester(userID int) bool {
	return f.RequesterID == userID
}

func (f *Friend) IsAddressee(userID int) bool {
	return f.AddresseeID == userID
}
