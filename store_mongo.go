package statsync

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements OfflineStore on a MongoDB collection.
type MongoStore struct {
	Collection *mongo.Collection

	// ExpireAfter, when positive, installs a TTL index in Setup so stale
	// offline blobs age out.
	ExpireAfter time.Duration
}

// NewMongoStore creates a MongoDB offline store.
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{Collection: collection}
}

// Setup initializes collection indexes.
func (s *MongoStore) Setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Collection == nil {
		return fmt.Errorf("mongo store requires Collection")
	}
	if s.ExpireAfter <= 0 {
		return nil
	}

	_, err := s.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(s.ExpireAfter / time.Second)),
	})
	return err
}

func (s *MongoStore) Description() string {
	return "MongoStore"
}

// Save upserts the blob document for a user.
func (s *MongoStore) Save(userID string, data []byte) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo store requires Collection")
	}
	doc := bson.M{
		"_id":        userID,
		"data":       data,
		"updated_at": time.Now().UTC(),
	}
	_, err := s.Collection.ReplaceOne(
		context.Background(),
		bson.M{"_id": userID},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

// Load fetches the blob for a user.
func (s *MongoStore) Load(userID string) ([]byte, bool, error) {
	if s.Collection == nil {
		return nil, false, fmt.Errorf("mongo store requires Collection")
	}
	var doc struct {
		Data []byte `bson:"data"`
	}
	err := s.Collection.FindOne(context.Background(), bson.M{"_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc.Data, true, nil
}

// Delete removes the blob for a user.
func (s *MongoStore) Delete(userID string) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo store requires Collection")
	}
	_, err := s.Collection.DeleteOne(context.Background(), bson.M{"_id": userID})
	return err
}
