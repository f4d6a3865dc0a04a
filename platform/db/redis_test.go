package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type redisTestConfig struct {
	url string
}

func (c redisTestConfig) GetRedisURL() string       { return c.url }
func (c redisTestConfig) GetRedisTLSInsecure() bool { return false }
func (c redisTestConfig) GetAsynqQueueName() string { return "" }
func (c redisTestConfig) GetAsynqConcurrency() int  { return 0 }

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), redisTestConfig{url: "redis://" + mr.Addr() + "/0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("expected value stored in redis, got %q", got)
	}
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), redisTestConfig{url: "http://localhost"}); err == nil {
		t.Fatal("expected error for non-redis scheme")
	}
}
