package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/domain"
)

const (
	sessionPrefix = "checkout:session:"
	pendingPrefix = "checkout:pending:"

	// Sessions outlive their deadline by this much so a late callback can
	// still be answered with "expired" instead of "unknown".
	DefaultRetention = 24 * time.Hour
)

// deletes the pending marker only if it still belongs to the given session
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type CheckoutCache struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewCheckoutCache(client *redis.Client, retention time.Duration) *CheckoutCache {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &CheckoutCache{client: client, retention: retention, now: time.Now}
}

func (c *CheckoutCache) Save(ctx context.Context, s *domain.CheckoutSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := s.ExpiresAt.Sub(c.now()) + c.retention
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.client.Set(ctx, sessionPrefix+s.ID, data, ttl).Err()
}

func (c *CheckoutCache) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	val, err := c.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s domain.CheckoutSession
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *CheckoutCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, sessionPrefix+id).Err()
}

func (c *CheckoutCache) ClaimPending(ctx context.Context, studentID string, courseID uuid.UUID, sessionID string, ttl time.Duration) (string, bool, error) {
	key := pendingKey(studentID, courseID)
	ok, err := c.client.SetNX(ctx, key, sessionID, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return sessionID, true, nil
	}

	existing, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET: try once more
		ok, err = c.client.SetNX(ctx, key, sessionID, ttl).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return sessionID, true, nil
		}
		existing, err = c.client.Get(ctx, key).Result()
	}
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

func (c *CheckoutCache) ReleasePending(ctx context.Context, studentID string, courseID uuid.UUID, sessionID string) error {
	return releaseScript.Run(ctx, c.client, []string{pendingKey(studentID, courseID)}, sessionID).Err()
}

func pendingKey(studentID string, courseID uuid.UUID) string {
	return pendingPrefix + studentID + ":" + courseID.String()
}

var _ application.SessionStore = (*CheckoutCache)(nil)
