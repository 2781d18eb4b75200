package entity

import "time"

const NotificationTypeMessage = "MESSAGE"

// Notification is the durable fallback for the live new-message event:
// it is written once per successful send and consumed on next login.
type Notification struct {
	Id        string    `bson:"_id" json:"id"`
	UserId    string    `bson:"userId" json:"userId"`
	Title     string    `bson:"title" json:"title"`
	Message   string    `bson:"message" json:"message"`
	Type      string    `bson:"type" json:"type"`
	Link      string    `bson:"link" json:"link"`
	IsRead    bool      `bson:"isRead" json:"isRead"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
