package usecase

import (
	"context"

	"gigtalk/internal/entity"
	"gigtalk/internal/repository"
)

type UserUsecase interface {
	Get(ctx context.Context, userId string) (entity.User, error)
	SetOnline(ctx context.Context, userId string, online bool) error
	HandleUnregisterSession(ctx context.Context, userId string) error
}

type userUsecase struct {
	userRepo repository.UserRepository
}

func NewUserUsecase(userRepo repository.UserRepository) UserUsecase {
	return &userUsecase{
		userRepo: userRepo,
	}
}

func (u *userUsecase) Get(ctx context.Context, userId string) (entity.User, error) {
	user, err := u.userRepo.Get(ctx, userId)
	if err != nil {
		return entity.User{}, err
	}

	return user, nil
}

func (u *userUsecase) SetOnline(ctx context.Context, userId string, online bool) error {
	user, err := u.userRepo.Get(ctx, userId)
	if err != nil {
		return err
	}

	user.IsOnline = online
	return u.userRepo.Update(ctx, user)
}

func (u *userUsecase) HandleUnregisterSession(ctx context.Context, userId string) error {
	return u.SetOnline(ctx, userId, false)
}
