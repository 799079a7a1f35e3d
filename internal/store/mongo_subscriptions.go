package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spa-booking-backend/internal/model"
)

const subscriptionCollection = "push_subscriptions"

// MongoSubscriptionStore keeps push subscriptions in a MongoDB collection.
type MongoSubscriptionStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSubscriptionStore connects to uri, verifies the connection and
// ensures the subscription indexes exist.
func NewMongoSubscriptionStore(ctx context.Context, uri, database string) (*MongoSubscriptionStore, error) {
	clientOptions := options.Client().ApplyURI(uri).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := newMongoSubscriptionStore(client.Database(database))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func newMongoSubscriptionStore(db *mongo.Database) *MongoSubscriptionStore {
	return &MongoSubscriptionStore{
		client: db.Client(),
		coll:   db.Collection(subscriptionCollection),
	}
}

// EnsureIndexes creates the subscription indexes if they are missing.
func (s *MongoSubscriptionStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.coll.Indexes().CreateMany(ctx, subscriptionIndexes()); err != nil {
		return fmt.Errorf("failed to create subscription indexes: %w", err)
	}
	return nil
}

// subscriptionIndexes mirrors the SQL indexes: unique (user, endpoint),
// (user, active) for fan-out and endpoint alone.
func subscriptionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "endpoint", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_endpoint_unique"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index().SetName("user_active"),
		},
		{
			Keys:    bson.D{{Key: "endpoint", Value: 1}},
			Options: options.Index().SetName("endpoint"),
		},
	}
}

// Close disconnects the client.
func (s *MongoSubscriptionStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoSubscriptionStore) CreateSubscription(ctx context.Context, sub *model.PushSubscription) error {
	now := time.Now().UTC()
	if sub.ID == "" {
		sub.ID = newID()
	}
	sub.IsActive = true
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, sub); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSubscription
		}
		return fmt.Errorf("failed to insert push subscription: %w", err)
	}
	return nil
}

func (s *MongoSubscriptionStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	now := time.Now().UTC()
	filter := bson.M{"userId": sub.UserID, "endpoint": sub.Endpoint}
	update := bson.M{
		"$set": bson.M{
			"p256dh":     sub.P256DH,
			"auth":       sub.Auth,
			"userAgent":  sub.UserAgent,
			"deviceType": sub.DeviceType,
			"isActive":   true,
			"updatedAt":  now,
		},
		"$setOnInsert": bson.M{
			"_id":       newID(),
			"createdAt": now,
		},
	}

	if _, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}
	var stored model.PushSubscription
	if err := s.coll.FindOne(ctx, filter).Decode(&stored); err != nil {
		return fmt.Errorf("failed to reload push subscription: %w", err)
	}
	*sub = stored
	return nil
}

func (s *MongoSubscriptionStore) DeactivateSubscription(ctx context.Context, userID, endpoint string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID, "endpoint": endpoint},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to deactivate push subscription: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoSubscriptionStore) DeactivateSubscriptionByID(ctx context.Context, id string) error {
	_, err := s.coll.UpdateByID(ctx, id,
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}})
	return err
}

func (s *MongoSubscriptionStore) ActiveSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	cur, err := s.coll.Find(ctx, bson.M{"userId": userID, "isActive": true})
	if err != nil {
		return nil, fmt.Errorf("failed to query push subscriptions: %w", err)
	}
	var subs []model.PushSubscription
	if err := cur.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("failed to decode push subscriptions: %w", err)
	}
	return subs, nil
}

func (s *MongoSubscriptionStore) TouchSubscription(ctx context.Context, id string, at time.Time) error {
	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"lastUsedAt": at.UTC()}})
	return err
}

var _ SubscriptionStore = (*MongoSubscriptionStore)(nil)
