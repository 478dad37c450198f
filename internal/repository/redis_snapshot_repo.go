package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"englishdrills/internal/models"
)

const (
	redisKeyPrefix   = "lesson:"
	redisFieldData   = "data"
	redisFieldUpdate = "updated_at"
)

// RedisSnapshotStore keeps each snapshot in a hash under
// lesson:<lessonID>:<learnerID>, optionally expiring after ttl
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func (r *RedisSnapshotStore) Get(ctx context.Context, learnerID, lessonID string) ([]byte, error) {
	data, err := r.client.HGet(ctx, models.SnapshotKey(lessonID, learnerID), redisFieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

func (r *RedisSnapshotStore) Put(ctx context.Context, snap models.StoredSnapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	key := models.SnapshotKey(snap.LessonID, snap.LearnerID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, redisFieldData, snap.Data, redisFieldUpdate, snap.UpdatedAt.UTC().UnixMilli())
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *RedisSnapshotStore) Delete(ctx context.Context, learnerID, lessonID string) error {
	if err := r.client.Del(ctx, models.SnapshotKey(lessonID, learnerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// List scans every snapshot key. Keys that do not parse are skipped.
func (r *RedisSnapshotStore) List(ctx context.Context) ([]models.StoredSnapshot, error) {
	var snapshots []models.StoredSnapshot
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		lessonID, learnerID, ok := parseSnapshotKey(key)
		if !ok {
			continue
		}
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		data, ok := fields[redisFieldData]
		if !ok {
			continue
		}
		s := models.StoredSnapshot{LearnerID: learnerID, LessonID: lessonID, Data: []byte(data)}
		if ms, err := strconv.ParseInt(fields[redisFieldUpdate], 10, 64); err == nil {
			s.UpdatedAt = time.UnixMilli(ms).UTC()
		}
		snapshots = append(snapshots, s)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan snapshots: %w", err)
	}
	return snapshots, nil
}

// ReplaceAll writes snapshots, optionally deleting every existing one first.
// Redis has no rollback, so a failure part way leaves the earlier writes.
func (r *RedisSnapshotStore) ReplaceAll(ctx context.Context, snapshots []models.StoredSnapshot, clearExisting bool) error {
	if clearExisting {
		existing, err := r.List(ctx)
		if err != nil {
			return err
		}
		for _, s := range existing {
			if err := r.Delete(ctx, s.LearnerID, s.LessonID); err != nil {
				return err
			}
		}
	}
	for _, s := range snapshots {
		if err := r.Put(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func parseSnapshotKey(key string) (lessonID, learnerID string, ok bool) {
	rest, found := strings.CutPrefix(key, redisKeyPrefix)
	if !found {
		return "", "", false
	}
	lessonID, learnerID, ok = strings.Cut(rest, ":")
	if !ok || lessonID == "" || learnerID == "" {
		return "", "", false
	}
	return lessonID, learnerID, true
}
