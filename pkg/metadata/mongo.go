package metadata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"zionix-swap/pkg/types"
)

const tokensCollection = "tokens"

// MongoStore keeps token descriptors in a MongoDB collection
type MongoStore struct {
	client *mongo.Client
	tokens *mongo.Collection
}

// ConnectMongo opens the store and makes sure the symbol index exists
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach mongodb: %w", err)
	}

	coll := client.Database(database).Collection(tokensCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "symbol", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create symbol index: %w", err)
	}

	return &MongoStore{client: client, tokens: coll}, nil
}

func (s *MongoStore) Get(ctx context.Context, address string) (*types.TokenDescriptor, error) {
	return s.findOne(ctx, bson.M{"_id": address})
}

func (s *MongoStore) Put(ctx context.Context, token *types.TokenDescriptor) error {
	if token == nil || token.Address == "" {
		return errors.New("token address is required")
	}
	_, err := s.tokens.ReplaceOne(ctx, bson.M{"_id": token.Address}, token, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store token %s: %w", token.Address, err)
	}
	return nil
}

func (s *MongoStore) FindBySymbol(ctx context.Context, symbol string) (*types.TokenDescriptor, error) {
	return s.findOne(ctx, bson.M{"symbol": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(symbol) + "$",
		Options: "i",
	}})
}

func (s *MongoStore) List(ctx context.Context) ([]*types.TokenDescriptor, error) {
	cur, err := s.tokens.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "symbol", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	var out []*types.TokenDescriptor
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode tokens: %w", err)
	}
	return out, nil
}

func (s *MongoStore) UpdatePrice(ctx context.Context, address string, priceUSD float64) error {
	res, err := s.tokens.UpdateByID(ctx, address, bson.M{"$set": bson.M{
		"priceUsd":  priceUSD,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to update price for %s: %w", address, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects from the server
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*types.TokenDescriptor, error) {
	var t types.TokenDescriptor
	err := s.tokens.FindOne(ctx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	return &t, nil
}
