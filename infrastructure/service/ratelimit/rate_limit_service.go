package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/agentity/agentity/application/port/outbound"
)

// Service is the redis-backed rate limiter shared by the registration
// endpoint and the ledger mirror budget.
type Service struct {
	redisClient *redis.Client
	logger      *logrus.Logger
}

// Config configures the limiter backend.
type Config struct {
	Enabled  bool
	RedisURL string
}

// NewService builds a redis-backed limiter, or a noop limiter that allows
// everything when disabled.
func NewService(cfg Config, logger *logrus.Logger) (outbound.RateLimiter, error) {
	if !cfg.Enabled {
		logger.Info("rate limiting disabled")
		return &noopService{}, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.WithField("redis_url", cfg.RedisURL).Info("rate limiting service initialized")
	return &Service{redisClient: client, logger: logger}, nil
}

var _ outbound.RateLimiter = (*Service)(nil)

// Allow consumes one attempt for key inside the window and reports whether
// the count stayed at or under the limit. The counter's TTL is set on first
// use so the window slides per key.
func (s *Service) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := s.redisClient.Pipeline()
	incr := pipe.Incr(ctx, "ratelimit:"+key)
	pipe.Expire(ctx, "ratelimit:"+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit increment: %w", err)
	}

	count := incr.Val()
	allowed := count <= int64(limit)
	if !allowed {
		s.logger.WithFields(logrus.Fields{
			"key":   key,
			"count": count,
			"limit": limit,
		}).Warn("rate limit exceeded")
	}
	return allowed, nil
}

// noopService allows every attempt.
type noopService struct{}

func (n *noopService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}
