package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	docKeyPrefix  = "doc||"
	collKeyPrefix = "coll||"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps every document as a plain string value. Each collection has a
// sorted set of its document ids, and every configured order field gets an extra
// sorted set scored by the field's unix microseconds.
type RedisStore struct {
	redisClient *redis.Client
	orderFields []string
}

func NewRedisStore(redisClient *redis.Client, orderFields ...string) *RedisStore {
	return &RedisStore{
		redisClient: redisClient,
		orderFields: orderFields,
	}
}

func docKey(path Path) string {
	return docKeyPrefix + string(path)
}

func collectionKey(collection Path) string {
	return collKeyPrefix + string(collection)
}

func orderIndexKey(collection Path, field string) string {
	return collKeyPrefix + string(collection) + "||by||" + field
}

// Set writes the document and its index entries in one MULTI/EXEC, so a
// failed write leaves neither behind.
func (s *RedisStore) Set(ctx context.Context, path Path, data []byte) error {
	collection := path.Parent()
	if _, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, docKey(path), data, 0)
		pipe.ZAdd(ctx, collectionKey(collection), &redis.Z{
			Score:  0,
			Member: path.ID(),
		})
		for _, field := range s.orderFields {
			t, ok := orderKey(data, field)
			if !ok {
				pipe.ZRem(ctx, orderIndexKey(collection, field), path.ID())
				continue
			}
			pipe.ZAdd(ctx, orderIndexKey(collection, field), &redis.Z{
				Score:  float64(t.UnixMicro()),
				Member: path.ID(),
			})
		}
		return nil
	}); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, path Path) ([]byte, error) {
	data, err := s.redisClient.Get(ctx, docKey(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, path Path) error {
	collection := path.Parent()
	if _, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, docKey(path))
		pipe.ZRem(ctx, collectionKey(collection), path.ID())
		for _, field := range s.orderFields {
			pipe.ZRem(ctx, orderIndexKey(collection, field), path.ID())
		}
		return nil
	}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) Query(ctx context.Context, q Query) ([][]byte, error) {
	var cmd *redis.StringSliceCmd
	switch {
	case q.OrderBy == "":
		cmd = s.redisClient.ZRange(ctx, collectionKey(q.Collection), 0, -1)
	case q.Descending:
		cmd = s.redisClient.ZRevRange(ctx, orderIndexKey(q.Collection, q.OrderBy), 0, -1)
	default:
		cmd = s.redisClient.ZRange(ctx, orderIndexKey(q.Collection, q.OrderBy), 0, -1)
	}

	ids, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	if len(ids) == 0 {
		return [][]byte{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, docKey(q.Collection+"/"+Path(id)))
	}

	values, err := s.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget %s: %w", q.Collection, err)
	}

	docs := make([][]byte, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			// index entry outlived its document
			continue
		}
		docs = append(docs, []byte(str))
	}
	return docs, nil
}
