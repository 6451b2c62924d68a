package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/clearauth/token-service/application/port/inbound"
)

// Config controls the redis-backed limiter guarding the token endpoint.
type Config struct {
	Enabled       bool
	RedisURL      string
	IPAttempts    int
	IPWindow      time.Duration
	BlockDuration time.Duration
}

type rateLimitService struct {
	redisClient *redis.Client
	logger      *logrus.Logger
}

// NewRateLimitService returns a redis-backed limiter, or a noop when
// disabled so callers never need a nil check.
func NewRateLimitService(config Config, logger *logrus.Logger) (inbound.RateLimitService, error) {
	if !config.Enabled {
		logger.Info("Rate limiting disabled")
		return &noopRateLimitService{}, nil
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisClient := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"ip_attempts":    config.IPAttempts,
		"ip_window":      config.IPWindow,
		"block_duration": config.BlockDuration,
	}).Info("Rate limiting service initialized")

	return &rateLimitService{
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

func (s *rateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	current, err := s.GetAttempts(ctx, key)
	if err != nil {
		return false, err
	}
	return current < limit, nil
}

func (s *rateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	attemptKey := "attempts:" + key

	pipe := s.redisClient.TxPipeline()
	incr := pipe.Incr(ctx, attemptKey)
	pipe.Expire(ctx, attemptKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"key":      key,
		"attempts": incr.Val(),
	}).Debug("Rate limit attempt recorded")

	return nil
}

func (s *rateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	blockKey := "blocked:" + key
	if err := s.redisClient.Set(ctx, blockKey, reason, duration).Err(); err != nil {
		return fmt.Errorf("failed to block key: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"key":      key,
		"duration": duration,
		"reason":   reason,
	}).Warn("Key blocked")

	return nil
}

func (s *rateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	blockKey := "blocked:" + key
	exists, err := s.redisClient.Exists(ctx, blockKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check block status: %w", err)
	}
	return exists > 0, nil
}

func (s *rateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	attemptKey := "attempts:" + key
	val, err := s.redisClient.Get(ctx, attemptKey).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get attempts: %w", err)
	}

	attempts, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse attempts: %w", err)
	}
	return attempts, nil
}

// noopRateLimitService allows everything; used when redis is not
// configured.
type noopRateLimitService struct{}

func (s *noopRateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

func (s *noopRateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	return nil
}

func (s *noopRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	return nil
}

func (s *noopRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (s *noopRateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	return 0, nil
}
