package entity

import "time"

type Message struct {
	Id         string    `bson:"_id" json:"id"`
	SenderId   string    `bson:"senderId" json:"senderId"`
	ReceiverId string    `bson:"receiverId" json:"receiverId"`
	Content    string    `bson:"content" json:"content"`
	SenderName string    `bson:"-" json:"senderName,omitempty"`
	IsRead     bool      `bson:"isRead" json:"isRead"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// MessageNotification is the preview pushed to the receiver's user
// room, independent of whether the conversation room is joined.
type MessageNotification struct {
	SenderId   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
}
