package usecase

import (
	"context"

	"gigtalk/internal/entity"
	"gigtalk/internal/repository"
)

type NotificationUsecase interface {
	Index(ctx context.Context, userId string) ([]entity.Notification, error)
	MarkAllRead(ctx context.Context, userId string) (int64, error)
}

type notificationUsecase struct {
	notificationRepo repository.NotificationRepository
}

func NewNotificationUsecase(notificationRepo repository.NotificationRepository) NotificationUsecase {
	return &notificationUsecase{
		notificationRepo: notificationRepo,
	}
}

func (u *notificationUsecase) Index(ctx context.Context, userId string) ([]entity.Notification, error) {
	return u.notificationRepo.ListByUser(ctx, userId)
}

func (u *notificationUsecase) MarkAllRead(ctx context.Context, userId string) (int64, error) {
	return u.notificationRepo.MarkAllRead(ctx, userId)
}
