package entity

import "time"

// ConversationKey derives the canonical identity of the conversation
// between two users. Both directions map to the same key, so the write
// path, the read path and room addressing all converge on one room.
func ConversationKey(userIdA, userIdB string) string {
	if userIdB < userIdA {
		userIdA, userIdB = userIdB, userIdA
	}
	return userIdA + ":" + userIdB
}

// UserRoom is the per-user channel used for notifications and typing
// relay, independent of which conversation is currently open.
func UserRoom(userId string) string {
	return "user:" + userId
}

// ConversationRoom is the channel shared by both participants of a
// conversation.
func ConversationRoom(userIdA, userIdB string) string {
	return "conversation:" + ConversationKey(userIdA, userIdB)
}

// ConversationSummary is a derived view: one entry per counterpart the
// user has exchanged messages with. Recomputed on read, never stored.
type ConversationSummary struct {
	CounterpartId   string    `bson:"_id" json:"counterpartId"`
	CounterpartName string    `bson:"counterpartName" json:"counterpartName"`
	LastMessage     string    `bson:"lastMessage" json:"lastMessage"`
	LastMessageTime time.Time `bson:"lastMessageTime" json:"lastMessageTime"`
	UnreadCount     int       `bson:"unreadCount" json:"unreadCount"`
}

// ConversationDetailResponse is what "open a conversation with user X"
// returns: the ordered messages plus the counterpart header.
type ConversationDetailResponse struct {
	Messages  []Message `json:"messages"`
	OtherUser User      `json:"otherUser"`
}
