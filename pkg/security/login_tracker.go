package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recruitment-backend/internal/domain"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoginTrackerConfig holds configuration for login tracking
type LoginTrackerConfig struct {
	MaxAttempts   int           // failed attempts before a block
	AttemptWindow time.Duration // window the attempts are counted in
	BlockDuration time.Duration // how long a block lasts
	UseIPTracking bool          // also block the source IP
}

// DefaultLoginTrackerConfig returns sensible defaults
func DefaultLoginTrackerConfig() LoginTrackerConfig {
	return LoginTrackerConfig{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		BlockDuration: 15 * time.Minute,
		UseIPTracking: true,
	}
}

var _ domain.LoginGuard = (*LoginTracker)(nil)

// LoginTracker counts failed logins in Redis and blocks usernames (and
// optionally IPs) that exceed the limit. With a nil client it never blocks.
type LoginTracker struct {
	client *goredis.Client
	config LoginTrackerConfig
	logger *SecurityLogger
}

// NewLoginTracker creates a new login tracker with the given config
func NewLoginTracker(client *goredis.Client, config LoginTrackerConfig, logger *SecurityLogger) *LoginTracker {
	if logger == nil {
		logger = NopSecurityLogger()
	}
	return &LoginTracker{
		client: client,
		config: config,
		logger: logger,
	}
}

// Redis key patterns
const (
	failLoginUserPrefix    = "fail:login:user:"
	failLoginIPPrefix      = "fail:login:ip:"
	blockedLoginUserPrefix = "blocked:login:user:"
	blockedLoginIPPrefix   = "blocked:login:ip:"
)

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
const incrWithTTLScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`

// IsBlocked checks if the given username or IP is currently blocked
func (lt *LoginTracker) IsBlocked(ctx context.Context, username, ip string) (bool, error) {
	if lt.client == nil {
		return false, nil
	}

	keys := []string{blockedLoginUserPrefix + username}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, blockedLoginIPPrefix+ip)
	}

	exists, err := lt.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check login block: %w", err)
	}
	return exists > 0, nil
}

// RecordFailure counts a failed attempt and reports whether it caused a block.
func (lt *LoginTracker) RecordFailure(ctx context.Context, username, ip string) (bool, error) {
	if lt.client == nil {
		return false, nil
	}

	ttlSeconds := int(lt.config.AttemptWindow.Seconds())

	userCount, err := lt.atomicIncrement(ctx, failLoginUserPrefix+username, ttlSeconds)
	if err != nil {
		return false, fmt.Errorf("failed to increment user counter: %w", err)
	}

	if lt.config.UseIPTracking && ip != "" {
		_, _ = lt.atomicIncrement(ctx, failLoginIPPrefix+ip, ttlSeconds) // best effort
	}

	if userCount >= lt.config.MaxAttempts {
		if err := lt.createBlock(ctx, username, ip); err != nil {
			return true, fmt.Errorf("failed to create block: %w", err)
		}
		return true, nil
	}
	return false, nil
}

func (lt *LoginTracker) atomicIncrement(ctx context.Context, key string, ttlSeconds int) (int, error) {
	result, err := lt.client.Eval(ctx, incrWithTTLScript, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, err
	}
	count, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected result type from Lua script")
	}
	return int(count), nil
}

func (lt *LoginTracker) createBlock(ctx context.Context, username, ip string) error {
	blockTTL := lt.config.BlockDuration

	if err := lt.client.Set(ctx, blockedLoginUserPrefix+username, "1", blockTTL).Err(); err != nil {
		return fmt.Errorf("failed to set user block: %w", err)
	}

	if lt.config.UseIPTracking && ip != "" {
		if err := lt.client.Set(ctx, blockedLoginIPPrefix+ip, "1", blockTTL).Err(); err != nil {
			// user is already blocked
			lt.logger.zapLogger.Warn("failed to set IP block", zap.Error(err))
		}
	}

	lt.logger.LogBlockCreated(ctx, username, ip, int(blockTTL.Minutes()))
	return nil
}

// Reset clears failed login attempts on successful login
func (lt *LoginTracker) Reset(ctx context.Context, username, ip string) error {
	if lt.client == nil {
		return nil
	}

	if err := lt.client.Del(ctx, failLoginUserPrefix+username).Err(); err != nil {
		return fmt.Errorf("failed to clear user attempts: %w", err)
	}
	if lt.config.UseIPTracking && ip != "" {
		_ = lt.client.Del(ctx, failLoginIPPrefix+ip).Err()
	}
	return nil
}

// RemainingAttempts returns how many attempts remain before a block
func (lt *LoginTracker) RemainingAttempts(ctx context.Context, username string) (int, error) {
	if lt.client == nil {
		return lt.config.MaxAttempts, nil
	}

	count, err := lt.client.Get(ctx, failLoginUserPrefix+username).Int()
	if errors.Is(err, goredis.Nil) {
		return lt.config.MaxAttempts, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get attempt count: %w", err)
	}

	remaining := lt.config.MaxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
