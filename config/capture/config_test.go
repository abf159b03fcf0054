package config

import "testing"

func TestRedisEnvIsReadUnderPrefix(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_PASSWORD", "s3cret")

	cfg := MustLoad()

	if cfg.Port != 8081 {
		t.Errorf("Port = %d, want 8081", cfg.Port)
	}
	if cfg.Redis.Host != "redis.internal" {
		t.Errorf("Redis.Host = %q, want redis.internal", cfg.Redis.Host)
	}
	// The gateway's own PORT must not leak into the nested redis config.
	if cfg.Redis.Port != "6380" {
		t.Errorf("Redis.Port = %q, want 6380", cfg.Redis.Port)
	}
	if cfg.Redis.Password != "s3cret" {
		t.Errorf("Redis.Password = %q, want s3cret", cfg.Redis.Password)
	}
	if addr := cfg.Redis.Addr(); addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr() = %q, want redis.internal:6380", addr)
	}
}
