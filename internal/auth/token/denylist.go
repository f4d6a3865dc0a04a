package token

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistKeyPrefix = "crm:jwt:revoked:"

// Denylist records access tokens revoked before their natural expiry.
type Denylist interface {
	Revoke(ctx context.Context, rawToken string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, rawToken string) (bool, error)
}

// RedisDenylist stores SHA-256 token hashes with a TTL matching the token lifetime.
type RedisDenylist struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

// Revoke is a no-op for tokens that have already expired.
func (d *RedisDenylist) Revoke(ctx context.Context, rawToken string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistKeyPrefix+HashSHA256(rawToken), "revoked", ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	err := d.client.Get(ctx, denylistKeyPrefix+HashSHA256(rawToken)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NoopDenylist is used when Redis is not configured; logout then only clears the cookie.
type NoopDenylist struct{}

func (NoopDenylist) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }

var (
	_ Denylist = (*RedisDenylist)(nil)
	_ Denylist = NoopDenylist{}
)
