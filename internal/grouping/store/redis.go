package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aroundtable/internal/grouping/models"
	id "aroundtable/pkg/domain"
	"aroundtable/pkg/platform/sentinel"
	"aroundtable/pkg/requestcontext"
)

const draftKeyPrefix = "aroundtable:draft:"

// ErrConflict is returned by Execute when another writer changed the draft
// between read and write.
var ErrConflict = redis.TxFailedErr

// RedisStore keeps drafts as JSON values whose key TTL matches the draft's
// lifetime, so abandoned drafts disappear on their own.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func draftKey(draftID id.DraftID) string {
	return draftKeyPrefix + draftID.String()
}

func (s *RedisStore) Create(ctx context.Context, draft *models.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	// restored drafts keep only the time they had left
	ttl := draft.ExpiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	ok, err := s.client.SetNX(ctx, draftKey(draft.ID), raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, draftID id.DraftID) (*models.Draft, error) {
	return s.get(ctx, s.client, draftID)
}

// Execute reads, mutates and writes the draft under WATCH. A concurrent write
// to the same draft aborts with ErrConflict; the key's remaining TTL is kept.
func (s *RedisStore) Execute(ctx context.Context, draftID id.DraftID, mutate func(*models.Draft) error) (*models.Draft, error) {
	key := draftKey(draftID)
	var result *models.Draft

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		d, err := s.get(ctx, tx, draftID)
		if err != nil {
			return err
		}
		if err := mutate(d); err != nil {
			return err
		}
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal draft: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		result = d
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RedisStore) Delete(ctx context.Context, draftID id.DraftID) error {
	n, err := s.client.Del(ctx, draftKey(draftID)).Result()
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) get(ctx context.Context, c getter, draftID id.DraftID) (*models.Draft, error) {
	raw, err := c.Get(ctx, draftKey(draftID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var d models.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	if d.IsExpired(requestcontext.Now(ctx)) {
		return nil, sentinel.ErrExpired
	}
	return &d, nil
}
