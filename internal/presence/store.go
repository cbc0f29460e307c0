// internal/presence/store.go
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cxworkforce/presencia/internal/models"
)

const snapshotKeyPrefix = "presencia:user:"

// RedisSnapshotStore keeps the hub's last-known worker records in Redis. The
// TTL matches the stale timeout so abandoned records age out on their own.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
	ctx    context.Context
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client: client,
		ttl:    ttl,
		ctx:    context.Background(),
	}
}

func snapshotKey(userID int) string {
	return fmt.Sprintf("%s%d", snapshotKeyPrefix, userID)
}

func (r *RedisSnapshotStore) Save(w models.ConnectedWorker) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, snapshotKey(w.UserID), data, r.ttl).Err()
}

func (r *RedisSnapshotStore) Delete(userID int) error {
	return r.client.Del(r.ctx, snapshotKey(userID)).Err()
}

func (r *RedisSnapshotStore) List() ([]models.ConnectedWorker, error) {
	keys, err := r.client.Keys(r.ctx, snapshotKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	var workers []models.ConnectedWorker
	for _, key := range keys {
		data, err := r.client.Get(r.ctx, key).Bytes()
		if err != nil {
			continue
		}
		var w models.ConnectedWorker
		if err := json.Unmarshal(data, &w); err != nil {
			continue
		}
		workers = append(workers, w)
	}
	return workers, nil
}
