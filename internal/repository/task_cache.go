package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"todo-service/internal/entity"
	"todo-service/internal/fieldcrypt"
)

const DefaultTaskCacheTTL = 5 * time.Minute

// TaskCache is a read-through cache for single task lookups. Entries are keyed
// by owner so a cached task is never served to another user.
//
// Each key has a generation counter that Invalidate bumps. A fill only lands
// if the generation read before loading the row is still current, so a reader
// racing a write cannot put the old row back.
type TaskCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	cipher fieldcrypt.Cipher
}

func NewTaskCache(rdb *redis.Client, ttl time.Duration, cipher fieldcrypt.Cipher) *TaskCache {
	if cipher == nil {
		cipher = fieldcrypt.Nop{}
	}
	return &TaskCache{rdb: rdb, ttl: ttl, cipher: cipher}
}

// Get returns (nil, nil) on a miss.
func (c *TaskCache) Get(ctx context.Context, userID, id int) (*entity.Task, error) {
	val, err := c.rdb.Get(ctx, taskCacheKey(userID, id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	plain, err := c.cipher.Decrypt(val)
	if err != nil {
		return nil, err
	}
	var task entity.Task
	if err := json.Unmarshal([]byte(plain), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Generation returns the current generation for the task; take it before
// reading the row that will be passed to Set.
func (c *TaskCache) Generation(ctx context.Context, userID, id int) (int64, error) {
	gen, err := c.rdb.Get(ctx, taskGenerationKey(userID, id)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return gen, nil
}

// Set stores task unless the generation moved past generation, in which case
// the write is skipped.
func (c *TaskCache) Set(ctx context.Context, task *entity.Task, generation int64) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	sealed, err := c.cipher.Encrypt(string(data))
	if err != nil {
		return err
	}

	genKey := taskGenerationKey(task.UserID, task.ID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, taskCacheKey(task.UserID, task.ID), sealed, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate drops the entry and bumps the generation so in-flight fills are
// discarded.
func (c *TaskCache) Invalidate(ctx context.Context, userID, id int) error {
	genKey := taskGenerationKey(userID, id)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, 2*c.ttl)
		pipe.Del(ctx, taskCacheKey(userID, id))
		return nil
	})
	return err
}

var errStaleGeneration = errors.New("task cache generation changed")

func taskCacheKey(userID, id int) string {
	return fmt.Sprintf("task:%d:%d", userID, id)
}

func taskGenerationKey(userID, id int) string {
	return fmt.Sprintf("task-gen:%d:%d", userID, id)
}
