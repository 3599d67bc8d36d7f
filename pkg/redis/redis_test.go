package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/krxscan/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Enabled: false},
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)

	limiter := NewRateLimiter(client, "test")
	cfg := PerSecond("naver", 10)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, cfg.Limit, remaining)

	assert.NoError(t, limiter.For(cfg).Wait(context.Background()))
}

func TestPerSecond(t *testing.T) {
	tests := []struct {
		name       string
		rps        float64
		wantLimit  int
		wantWindow time.Duration
	}{
		{"whole rate", 5, 5, time.Second},
		{"fractional rate widens window", 0.5, 1, 2 * time.Second},
		{"non-positive is unlimited", 0, 1<<31 - 1, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := PerSecond("dart", tt.rps)
			assert.Equal(t, "dart", cfg.Key)
			assert.Equal(t, tt.wantLimit, cfg.Limit)
			assert.Equal(t, tt.wantWindow, cfg.Window)
		})
	}
}

func TestRateLimiterKey(t *testing.T) {
	limiter := NewRateLimiter(&Client{}, "krxscan")
	assert.Equal(t, "krxscan:ratelimit:dart", limiter.key(RateLimitConfig{Key: "dart"}))
}

func TestCache_Disabled(t *testing.T) {
	client, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)

	cache := NewCache(client, "test")
	assert.Equal(t, "test:cache:dart:corpcode", cache.key("dart:corpcode"))

	require.NoError(t, cache.Set(context.Background(), "dart:corpcode", map[string]string{"005930": "00126380"}, time.Hour))

	var dest map[string]string
	found, err := cache.Get(context.Background(), "dart:corpcode", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, dest)
	assert.NoError(t, cache.Delete(context.Background(), "dart:corpcode"))
}
