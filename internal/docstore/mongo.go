package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoDocumentsCollection = "documents"

var _ Store = (*MongoStore)(nil)

type mongoDocument struct {
	Path       string               `bson:"_id"`
	Collection string               `bson:"collection"`
	Data       string               `bson:"data"`
	Keys       map[string]time.Time `bson:"keys,omitempty"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

// MongoStore keeps all documents in one mongo collection. The raw JSON is stored
// as-is, order fields are copied next to it as native dates for sorting.
type MongoStore struct {
	documents   *mongo.Collection
	orderFields []string
}

func NewMongoStore(db *mongo.Database, orderFields ...string) *MongoStore {
	return &MongoStore{
		documents:   db.Collection(mongoDocumentsCollection),
		orderFields: orderFields,
	}
}

// EnsureIndexes creates the collection index used by Query.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "collection", Value: 1}}},
	}
	for _, field := range s.orderFields {
		models = append(models, mongo.IndexModel{
			Keys: bson.D{{Key: "collection", Value: 1}, {Key: "keys." + field, Value: -1}},
		})
	}
	if _, err := s.documents.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Set(ctx context.Context, path Path, data []byte) error {
	doc := mongoDocument{
		Path:       string(path),
		Collection: string(path.Parent()),
		Data:       string(data),
		UpdatedAt:  time.Now().UTC(),
	}
	for _, field := range s.orderFields {
		if t, ok := orderKey(data, field); ok {
			if doc.Keys == nil {
				doc.Keys = make(map[string]time.Time)
			}
			doc.Keys[field] = t
		}
	}

	_, err := s.documents.ReplaceOne(
		ctx,
		bson.M{"_id": doc.Path},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, path Path) ([]byte, error) {
	var doc mongoDocument
	if err := s.documents.FindOne(ctx, bson.M{"_id": string(path)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", path, err)
	}
	return []byte(doc.Data), nil
}

func (s *MongoStore) Delete(ctx context.Context, path Path) error {
	if _, err := s.documents.DeleteOne(ctx, bson.M{"_id": string(path)}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *MongoStore) Query(ctx context.Context, q Query) ([][]byte, error) {
	filter := bson.M{"collection": string(q.Collection)}
	opts := options.Find()
	if q.OrderBy == "" {
		opts.SetSort(bson.D{{Key: "_id", Value: 1}})
	} else {
		direction := 1
		if q.Descending {
			direction = -1
		}
		filter["keys."+q.OrderBy] = bson.M{"$exists": true}
		opts.SetSort(bson.D{{Key: "keys." + q.OrderBy, Value: direction}, {Key: "_id", Value: 1}})
	}

	cursor, err := s.documents.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Collection, err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	docs := [][]byte{}
	for cursor.Next(ctx) {
		var doc mongoDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", q.Collection, err)
		}
		docs = append(docs, []byte(doc.Data))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor %s: %w", q.Collection, err)
	}

	return docs, nil
}
