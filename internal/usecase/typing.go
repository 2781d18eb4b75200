package usecase

import (
	"strings"
	"time"

	"gigtalk/infrastructure/cache"
	"gigtalk/internal/entity"
)

// typingTTL bounds how long a typing flag survives without refresh, so
// a missed stop-typing or a dropped connection can never leave a
// permanently stuck indicator.
const typingTTL = 5 * time.Second

// TypingTracker holds the ephemeral per (conversation, user) typing
// state. Nothing here is persisted or shared across server instances.
type TypingTracker struct {
	cache *cache.MemCache
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		cache: cache.NewMemCache(typingTTL),
	}
}

func typingKey(conversationKey, userId string) string {
	return "typing:" + conversationKey + ":" + userId
}

// Set marks userId as typing in the conversation with otherId,
// refreshing the expiry on every call.
func (t *TypingTracker) Set(userId, otherId string) {
	t.cache.Set(typingKey(entity.ConversationKey(userId, otherId), userId), true, typingTTL)
}

func (t *TypingTracker) Clear(userId, otherId string) {
	t.cache.Delete(typingKey(entity.ConversationKey(userId, otherId), userId))
}

func (t *TypingTracker) IsTyping(userId, otherId string) bool {
	return t.cache.Exists(typingKey(entity.ConversationKey(userId, otherId), userId))
}

// ClearUser drops every typing flag held by userId, in any
// conversation. Called when the user's session disconnects.
func (t *TypingTracker) ClearUser(userId string) {
	suffix := ":" + userId
	for _, key := range t.cache.Keys() {
		if strings.HasPrefix(key, "typing:") && strings.HasSuffix(key, suffix) {
			t.cache.Delete(key)
		}
	}
}

func (t *TypingTracker) Close() {
	t.cache.Close()
}
