package repository

import (
	"context"
	"time"

	"gigtalk/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification entity.Notification) (string, error)
	ListByUser(ctx context.Context, userId string) ([]entity.Notification, error)
	MarkAllRead(ctx context.Context, userId string) (int64, error)
}

type notificationRepository struct {
	db mongo.Database
}

func NewNotificationRepository(db mongo.Database) NotificationRepository {
	return &notificationRepository{
		db: db,
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification entity.Notification) (string, error) {
	collection := r.db.Collection("notifications")
	notification.Id = uuid.New().String()
	notification.IsRead = false
	notification.CreatedAt = time.Now().UTC()

	_, err := collection.InsertOne(ctx, notification)
	if err != nil {
		return "", err
	}

	return notification.Id, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userId string) ([]entity.Notification, error) {
	collection := r.db.Collection("notifications")
	filter := bson.M{"userId": userId}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var notifications []entity.Notification
	err = cursor.All(ctx, &notifications)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userId string) (int64, error) {
	collection := r.db.Collection("notifications")
	filter := bson.M{"userId": userId, "isRead": false}
	update := bson.M{"$set": bson.M{"isRead": true}}

	result, err := collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}
