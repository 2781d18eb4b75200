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

type MessageRepository interface {
	Create(ctx context.Context, message entity.Message) (entity.Message, error)
	Get(ctx context.Context, messageId string) (entity.Message, error)
	ListBetween(ctx context.Context, userIdA, userIdB string) ([]entity.Message, error)
	MarkConversationRead(ctx context.Context, receiverId, senderId string) (int64, error)
	Summaries(ctx context.Context, userId string) ([]entity.ConversationSummary, error)
	CountUnread(ctx context.Context, receiverId, senderId string) (int64, error)
}

type messageRepository struct {
	db mongo.Database
}

func NewMessageRepository(db mongo.Database) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

// Create inserts a new message with a server-assigned id and timestamp.
// The insert is all-or-nothing: no partial message row can exist.
func (r *messageRepository) Create(ctx context.Context, message entity.Message) (entity.Message, error) {
	collection := r.db.Collection("messages")
	message.Id = uuid.New().String()
	message.IsRead = false
	message.CreatedAt = time.Now().UTC()

	_, err := collection.InsertOne(ctx, message)
	if err != nil {
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) Get(ctx context.Context, messageId string) (entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}

	var message entity.Message
	err := collection.FindOne(ctx, filter).Decode(&message)
	if err != nil {
		return entity.Message{}, err
	}

	return message, nil
}

// ListBetween returns every message exchanged between the two users,
// ascending by creation time. Both directions of the pair match.
func (r *messageRepository) ListBetween(ctx context.Context, userIdA, userIdB string) ([]entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"$or": bson.A{
			bson.M{"senderId": userIdA, "receiverId": userIdB},
			bson.M{"senderId": userIdB, "receiverId": userIdA},
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var messages []entity.Message
	err = cursor.All(ctx, &messages)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkConversationRead flips every unread message from senderId to
// receiverId in a single UpdateMany, so concurrent opens of the same
// conversation cannot double-count. Returns how many were flipped;
// a second call right after the first reports zero.
func (r *messageRepository) MarkConversationRead(ctx context.Context, receiverId, senderId string) (int64, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"senderId":   senderId,
		"receiverId": receiverId,
		"isRead":     false,
	}
	update := bson.M{
		"$set": bson.M{"isRead": true},
	}

	result, err := collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}

// Summaries computes one row per counterpart: grouping is by the
// counterpart id rather than the raw (sender, receiver) direction, so
// A->B and B->A traffic lands in the same row.
func (r *messageRepository) Summaries(ctx context.Context, userId string) ([]entity.ConversationSummary, error) {
	collection := r.db.Collection("messages")

	matchStage := bson.D{{Key: "$match", Value: bson.D{
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "senderId", Value: userId}},
			bson.D{{Key: "receiverId", Value: userId}},
		}},
	}}}
	counterpartStage := bson.D{{Key: "$addFields", Value: bson.D{
		{Key: "counterpart", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$senderId", userId}}},
			"$receiverId",
			"$senderId",
		}}}},
	}}}
	sortStage := bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}}
	groupStage := bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$counterpart"},
		{Key: "lastMessage", Value: bson.D{{Key: "$first", Value: "$content"}}},
		{Key: "lastMessageTime", Value: bson.D{{Key: "$first", Value: "$createdAt"}}},
		{Key: "unreadCount", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$receiverId", userId}}},
				bson.D{{Key: "$eq", Value: bson.A{"$isRead", false}}},
			}}},
			1,
			0,
		}}}}}},
	}}}
	lookupStage := bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: "users"},
		{Key: "localField", Value: "_id"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "counterpartUser"},
	}}}
	projectStage := bson.D{{Key: "$project", Value: bson.D{
		{Key: "lastMessage", Value: 1},
		{Key: "lastMessageTime", Value: 1},
		{Key: "unreadCount", Value: 1},
		{Key: "counterpartName", Value: bson.D{{Key: "$first", Value: "$counterpartUser.name"}}},
	}}}
	orderStage := bson.D{{Key: "$sort", Value: bson.D{{Key: "lastMessageTime", Value: -1}}}}

	cursor, err := collection.Aggregate(ctx, mongo.Pipeline{
		matchStage, counterpartStage, sortStage, groupStage, lookupStage, projectStage, orderStage,
	})
	if err != nil {
		return nil, err
	}

	var summaries []entity.ConversationSummary
	err = cursor.All(ctx, &summaries)
	if err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, receiverId, senderId string) (int64, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"senderId":   senderId,
		"receiverId": receiverId,
		"isRead":     false,
	}
	return collection.CountDocuments(ctx, filter)
}
