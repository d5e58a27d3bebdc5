package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestTokenBlacklistInMemory(t *testing.T) {
	ctx := context.Background()
	bl := NewTokenBlacklist(nil)

	assert.False(t, bl.Contains(ctx, "tok"))
	bl.Add(ctx, "tok", time.Now().Add(time.Hour))
	assert.True(t, bl.Contains(ctx, "tok"))

	bl.Add(ctx, "stale", time.Now().Add(-time.Second))
	assert.False(t, bl.Contains(ctx, "stale"), "already expired tokens are not stored")
}

func TestTokenBlacklistRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	bl := NewTokenBlacklist(rdb)
	bl.Add(ctx, "tok", time.Now().Add(time.Minute))

	assert.True(t, mr.Exists(blacklistKeyPrefix+"tok"))
	assert.True(t, bl.Contains(ctx, "tok"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, bl.Contains(ctx, "tok"))
}

func TestTokenBlacklistFallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	bl := NewTokenBlacklist(rdb)
	bl.Add(ctx, "tok", time.Now().Add(time.Minute))
	assert.True(t, bl.Contains(ctx, "tok"))
}
