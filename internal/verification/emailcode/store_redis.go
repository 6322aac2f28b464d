package emailcode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	id "civic/pkg/domain"
	"civic/pkg/platform/sentinel"
)

const keyPrefix = "civic:emailcode:"

// consumeScript increments attempts only when the key still exists, so an
// expired code is never resurrected without a TTL.
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local fields = redis.call('HMGET', KEYS[1], 'email', 'hash')
return {attempts, fields[1], fields[2]}
`)

// RedisStore keeps codes in Redis hashes that expire with the code.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(userID id.UserID) string {
	return keyPrefix + userID.String()
}

// Save writes the hash and TTL in one MULTI/EXEC.
func (s *RedisStore) Save(ctx context.Context, userID id.UserID, rec Record, ttl time.Duration) error {
	k := key(userID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, k)
	pipe.HSet(ctx, k, "email", rec.Email, "hash", string(rec.Hash), "attempts", 0)
	pipe.Expire(ctx, k, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Consume(ctx context.Context, userID id.UserID) (*Record, int, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{key(userID)}).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, 0, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	if len(res) != 3 {
		return nil, 0, fmt.Errorf("unexpected consume reply length %d", len(res))
	}
	attempts, err := toInt(res[0])
	if err != nil {
		return nil, 0, err
	}
	email, _ := res[1].(string)
	hash, _ := res[2].(string)
	return &Record{Email: email, Hash: []byte(hash)}, attempts, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID id.UserID) error {
	return s.client.Del(ctx, key(userID)).Err()
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unexpected attempts type %T", v)
	}
}
