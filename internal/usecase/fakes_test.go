package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gigtalk/internal/entity"
	"gigtalk/internal/repository"

	"github.com/google/uuid"
)

// In-memory stand-ins for the mongo repositories, implementing the
// same contracts so the routing and read-marking behavior can be
// exercised without a database.

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []entity.Message
	failNext error
}

func (f *fakeMessageRepo) Create(_ context.Context, m entity.Message) (entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return entity.Message{}, err
	}
	m.Id = uuid.New().String()
	m.IsRead = false
	m.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeMessageRepo) Get(_ context.Context, id string) (entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.Id == id {
			return m, nil
		}
	}
	return entity.Message{}, errors.New("message not found")
}

func (f *fakeMessageRepo) ListBetween(_ context.Context, a, b string) ([]entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Message
	for _, m := range f.messages {
		if (m.SenderId == a && m.ReceiverId == b) || (m.SenderId == b && m.ReceiverId == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMessageRepo) MarkConversationRead(_ context.Context, receiverId, senderId string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.messages {
		m := &f.messages[i]
		if m.ReceiverId == receiverId && m.SenderId == senderId && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) Summaries(_ context.Context, userId string) ([]entity.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byCounterpart := make(map[string]*entity.ConversationSummary)
	for _, m := range f.messages {
		var counterpart string
		switch userId {
		case m.SenderId:
			counterpart = m.ReceiverId
		case m.ReceiverId:
			counterpart = m.SenderId
		default:
			continue
		}
		s := byCounterpart[counterpart]
		if s == nil {
			s = &entity.ConversationSummary{CounterpartId: counterpart}
			byCounterpart[counterpart] = s
		}
		if !m.CreatedAt.Before(s.LastMessageTime) {
			s.LastMessage = m.Content
			s.LastMessageTime = m.CreatedAt
		}
		if m.ReceiverId == userId && !m.IsRead {
			s.UnreadCount++
		}
	}
	out := make([]entity.ConversationSummary, 0, len(byCounterpart))
	for _, s := range byCounterpart {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTime.After(out[j].LastMessageTime) })
	return out, nil
}

func (f *fakeMessageRepo) CountUnread(_ context.Context, receiverId, senderId string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.messages {
		if m.ReceiverId == receiverId && m.SenderId == senderId && !m.IsRead {
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	users map[string]entity.User
}

func newFakeUserRepo(users ...entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]entity.User)}
	for _, u := range users {
		r.users[u.Id] = u
	}
	return r
}

func (f *fakeUserRepo) Get(_ context.Context, id string) (entity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return entity.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (entity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return entity.User{}, repository.ErrUserNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, u entity.User) (string, error) {
	u.Id = uuid.New().String()
	f.users[u.Id] = u
	return u.Id, nil
}

func (f *fakeUserRepo) Update(_ context.Context, u entity.User) error {
	if _, ok := f.users[u.Id]; !ok {
		return repository.ErrUserNotFound
	}
	f.users[u.Id] = u
	return nil
}

func (f *fakeUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(context.Background(), email)
	return err == nil, nil
}

func (f *fakeUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created chan entity.Notification
	fail    bool
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{created: make(chan entity.Notification, 16)}
}

func (f *fakeNotificationRepo) Create(_ context.Context, n entity.Notification) (string, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		f.created <- entity.Notification{} // signal the attempt
		return "", errors.New("notification store unavailable")
	}
	n.Id = uuid.New().String()
	f.created <- n
	return n.Id, nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, _ string) ([]entity.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

// publishedEvent records one fan-out call for assertion.
type publishedEvent struct {
	kind     string // "message", "new-message", "typing", "stop-typing"
	to       string // receiver user id for user-room events
	message  entity.Message
	notif    entity.MessageNotification
	isTyping bool
	sender   string
}

type fakePublisher struct {
	mu        sync.Mutex
	events    []publishedEvent
	onMessage func(entity.Message)
}

func (f *fakePublisher) PublishMessage(m entity.Message) {
	f.mu.Lock()
	f.events = append(f.events, publishedEvent{kind: "message", message: m})
	f.mu.Unlock()
	if f.onMessage != nil {
		f.onMessage(m)
	}
}

func (f *fakePublisher) PublishNewMessage(receiverId string, n entity.MessageNotification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{kind: "new-message", to: receiverId, notif: n})
}

func (f *fakePublisher) PublishTyping(receiverId, senderId string, isTyping bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{kind: "typing", to: receiverId, sender: senderId, isTyping: isTyping})
}

func (f *fakePublisher) PublishStopTyping(receiverId, senderId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{kind: "stop-typing", to: receiverId, sender: senderId})
}

func (f *fakePublisher) all() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedEvent, len(f.events))
	copy(out, f.events)
	return out
}
