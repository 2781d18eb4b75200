package usecase

import (
	"context"
	"errors"
	"strings"

	"gigtalk/internal/entity"
	"gigtalk/internal/metrics"
	"gigtalk/internal/repository"

	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyContent     = errors.New("message content is empty")
	ErrSelfMessage      = errors.New("sender and receiver are the same user")
	ErrReceiverNotFound = errors.New("receiver not found")
)

// EventPublisher is the live delivery seam: implementations push
// already-persisted events to connected sessions. Every method is
// best-effort and must never fail the caller.
type EventPublisher interface {
	PublishMessage(message entity.Message)
	PublishNewMessage(receiverId string, notification entity.MessageNotification)
	PublishTyping(receiverId, senderId string, isTyping bool)
	PublishStopTyping(receiverId, senderId string)
}

type MessageUsecase interface {
	// Send validates, persists, then fans out: the message event to the
	// conversation room, the notification to the receiver's user room,
	// and the durable notification record. Only validation and
	// persistence failures are returned; everything after a successful
	// write is best-effort.
	Send(ctx context.Context, senderId, receiverId, content string) (entity.Message, error)
	Typing(senderId, receiverId string, isTyping bool)
	StopTyping(senderId, receiverId string)
	HandleDisconnect(userId string)
}

type messageUsecase struct {
	messageRepo      repository.MessageRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	publisher        EventPublisher
	typing           *TypingTracker
}

func NewMessageUsecase(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	publisher EventPublisher,
	typing *TypingTracker,
) MessageUsecase {
	return &messageUsecase{
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		publisher:        publisher,
		typing:           typing,
	}
}

func (u *messageUsecase) Send(ctx context.Context, senderId, receiverId, content string) (entity.Message, error) {
	if strings.TrimSpace(content) == "" {
		return entity.Message{}, ErrEmptyContent
	}
	if receiverId == "" || senderId == receiverId {
		return entity.Message{}, ErrSelfMessage
	}

	if _, err := u.userRepo.Get(ctx, receiverId); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.Message{}, ErrReceiverNotFound
		}
		return entity.Message{}, err
	}

	sender, err := u.userRepo.Get(ctx, senderId)
	if err != nil {
		return entity.Message{}, err
	}

	message, err := u.messageRepo.Create(ctx, entity.Message{
		SenderId:   senderId,
		ReceiverId: receiverId,
		Content:    content,
	})
	if err != nil {
		return entity.Message{}, err
	}
	message.SenderName = sender.Name
	metrics.MessagesTotal.Inc()

	// The message is durable from here on. Typing state for this
	// conversation is stale now, and every delivery below is
	// fire-and-forget: a failed broadcast must not unwind the write.
	u.typing.Clear(senderId, receiverId)

	u.publisher.PublishMessage(message)
	u.publisher.PublishNewMessage(receiverId, entity.MessageNotification{
		SenderId:   senderId,
		SenderName: sender.Name,
		Content:    message.Content,
	})

	// Durable fallback for a receiver with no live session, written on
	// a background context so a dropped sender connection cannot cancel it.
	go func() {
		_, err := u.notificationRepo.Create(context.Background(), entity.Notification{
			UserId:  receiverId,
			Title:   "New Message",
			Message: sender.Name + " sent you a message",
			Type:    entity.NotificationTypeMessage,
			Link:    "/messages/" + senderId,
		})
		if err != nil {
			metrics.DeliveryFailuresTotal.Inc()
			log.Error().Err(err).Str("receiverId", receiverId).Msg("create durable notification")
		}
	}()

	return message, nil
}

// Typing relays the indicator to the counterpart's user room; the
// originator never receives its own event back. Nothing is persisted.
func (u *messageUsecase) Typing(senderId, receiverId string, isTyping bool) {
	if receiverId == "" || senderId == receiverId {
		return
	}
	if isTyping {
		u.typing.Set(senderId, receiverId)
	} else {
		u.typing.Clear(senderId, receiverId)
	}
	u.publisher.PublishTyping(receiverId, senderId, isTyping)
}

func (u *messageUsecase) StopTyping(senderId, receiverId string) {
	if receiverId == "" || senderId == receiverId {
		return
	}
	u.typing.Clear(senderId, receiverId)
	u.publisher.PublishStopTyping(receiverId, senderId)
}

// HandleDisconnect clears the ephemeral typing flags a departing user
// may still hold. In-flight sends are unaffected.
func (u *messageUsecase) HandleDisconnect(userId string) {
	u.typing.ClearUser(userId)
}
