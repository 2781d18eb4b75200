package usecase

import (
	"context"

	"gigtalk/internal/entity"
	"gigtalk/internal/repository"
)

type ConversationUsecase interface {
	// Open returns the full conversation with otherId, oldest first.
	// Opening implicitly acknowledges: every unread message addressed
	// to userId from otherId is marked read before the list is built,
	// so the returned messages already carry the updated flag.
	Open(ctx context.Context, userId, otherId string) (entity.ConversationDetailResponse, error)
	Summaries(ctx context.Context, userId string) ([]entity.ConversationSummary, error)
	// UnreadFrom counts messages from otherId that userId has not yet
	// read, without touching the read flags.
	UnreadFrom(ctx context.Context, userId, otherId string) (int64, error)
}

type conversationUsecase struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
}

func NewConversationUsecase(messageRepo repository.MessageRepository, userRepo repository.UserRepository) ConversationUsecase {
	return &conversationUsecase{
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

func (u *conversationUsecase) Open(ctx context.Context, userId, otherId string) (entity.ConversationDetailResponse, error) {
	otherUser, err := u.userRepo.Get(ctx, otherId)
	if err != nil {
		return entity.ConversationDetailResponse{}, err
	}

	// One atomic flip; a second Open right after finds nothing left to
	// mark, so the unread counter cannot double-count.
	if _, err := u.messageRepo.MarkConversationRead(ctx, userId, otherId); err != nil {
		return entity.ConversationDetailResponse{}, err
	}

	messages, err := u.messageRepo.ListBetween(ctx, userId, otherId)
	if err != nil {
		return entity.ConversationDetailResponse{}, err
	}

	otherUser.Password = ""
	return entity.ConversationDetailResponse{
		Messages:  messages,
		OtherUser: otherUser,
	}, nil
}

func (u *conversationUsecase) Summaries(ctx context.Context, userId string) ([]entity.ConversationSummary, error) {
	return u.messageRepo.Summaries(ctx, userId)
}

func (u *conversationUsecase) UnreadFrom(ctx context.Context, userId, otherId string) (int64, error) {
	return u.messageRepo.CountUnread(ctx, userId, otherId)
}
