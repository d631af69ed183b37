package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"registrar/internal/models"
)

// RedisPublicSessionRepository хранит сессию JSON-ключом с TTL до ближайшего дедлайна.
type RedisPublicSessionRepository struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

func NewRedisPublicSessionRepository(client *redis.Client, keyPrefix string) *RedisPublicSessionRepository {
	if keyPrefix == "" {
		keyPrefix = "public-session:"
	}
	return &RedisPublicSessionRepository{client: client, keyPrefix: keyPrefix, now: time.Now}
}

func (r *RedisPublicSessionRepository) key(registrationID int64) string {
	return fmt.Sprintf("%s%d", r.keyPrefix, registrationID)
}

func (r *RedisPublicSessionRepository) Save(ctx context.Context, s *models.PublicSession) error {
	ttl := s.Deadline().Sub(r.now())
	if ttl <= 0 {
		return r.Delete(ctx, s.RegistrationID)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal public session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.RegistrationID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis save public session: %w", err)
	}
	return nil
}

func (r *RedisPublicSessionRepository) GetByRegistrationID(ctx context.Context, registrationID int64) (*models.PublicSession, error) {
	val, err := r.client.Get(ctx, r.key(registrationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get public session: %w", err)
	}
	var s models.PublicSession
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("unmarshal public session: %w", err)
	}
	return &s, nil
}

// Touch под WATCH: если сессию перевыпустили между GET и SET, продлевать нечего.
func (r *RedisPublicSessionRepository) Touch(ctx context.Context, registrationID int64, tokenHash string, lastSeen, expiresAt time.Time) error {
	key := r.key(registrationID)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var s models.PublicSession
		if err := json.Unmarshal(val, &s); err != nil {
			return fmt.Errorf("unmarshal public session: %w", err)
		}
		if s.TokenHash != tokenHash {
			return nil
		}
		s.LastSeenAt = lastSeen
		s.ExpiresAt = expiresAt
		ttl := s.Deadline().Sub(r.now())
		raw, err := json.Marshal(&s)
		if err != nil {
			return fmt.Errorf("marshal public session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if ttl <= 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, raw, ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis touch public session: %w", err)
	}
	return nil
}

func (r *RedisPublicSessionRepository) Delete(ctx context.Context, registrationID int64) error {
	if err := r.client.Del(ctx, r.key(registrationID)).Err(); err != nil {
		return fmt.Errorf("redis delete public session: %w", err)
	}
	return nil
}
