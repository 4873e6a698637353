package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Collection provides typed CRUD operations over one MongoDB collection.
// Documents use string _id values.
type Collection[T any] struct {
	collection *mongo.Collection
}

// NewCollection creates a typed wrapper for the named collection
func NewCollection[T any](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{
		collection: db.Collection(name),
	}
}

// OpenConnection connects and pings the server before returning the database
func OpenConnection(uri string, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client.Database(database), nil
}

// Raw exposes the driver collection for aggregations and index management.
func (c *Collection[T]) Raw() *mongo.Collection {
	return c.collection
}

// Create inserts a new document
func (c *Collection[T]) Create(ctx context.Context, document T) error {
	_, err := c.collection.InsertOne(ctx, document)
	return err
}

// FindByID finds a document by its string id
func (c *Collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return c.FindOne(ctx, bson.M{"_id": id})
}

// FindOne finds a single document matching the filter
func (c *Collection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var result T
	if err := c.collection.FindOne(ctx, filter).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindAll finds all documents matching the filter, sorted by sort when non-nil
func (c *Collection[T]) FindAll(ctx context.Context, filter bson.M, sort bson.D) ([]T, error) {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}

	cursor, err := c.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// FindOneAndSet applies $set to the first match and returns the updated document
func (c *Collection[T]) FindOneAndSet(ctx context.Context, filter bson.M, set bson.M) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var result T
	err := c.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateByID applies $set to the document with the given id
func (c *Collection[T]) UpdateByID(ctx context.Context, id string, set bson.M) (*mongo.UpdateResult, error) {
	return c.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}
