package security

import (
	"context"
	"os"
	"testing"
	"time"

	"recruitment-backend/pkg/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", MaskEmail("jane@example.com"))
	assert.Equal(t, "***@example.com", MaskEmail("j@example.com"))
	assert.Equal(t, "***", MaskEmail("no-at-sign"))
	assert.Equal(t, "***", MaskEmail(""))
}

func TestHashValueIsStable(t *testing.T) {
	assert.Equal(t, HashValue("alice"), HashValue("alice"))
	assert.NotEqual(t, HashValue("alice"), HashValue("bob"))
	assert.Len(t, HashValue("alice"), 16)
}

func TestSecurityLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sl := NewSecurityLoggerWith(zap.New(core), "recruitment-backend", "test")

	sl.LogStatusDecision(context.Background(), 5, "ACCEPTED", "", true)
	sl.LogStatusDecision(context.Background(), 5, "REJECTED", "ACCEPTED", false)
	sl.LogLoginBlocked(context.Background(), "alice", "10.0.0.1")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, string(EventStatusChanged), entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, string(EventStatusConflict), entries[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, HashValue("alice"), entries[2].ContextMap()["subject_value"])
}

func TestLoginTrackerWithoutRedis(t *testing.T) {
	lt := NewLoginTracker(nil, DefaultLoginTrackerConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		blocked, err := lt.RecordFailure(ctx, "alice", "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, blocked)
	}
	blocked, err := lt.IsBlocked(ctx, "alice", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.NoError(t, lt.Reset(ctx, "alice", "10.0.0.1"))
}

func TestLoginTrackerBlocksAfterMaxAttempts(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping redis integration test")
	}
	ctx := context.Background()
	client, err := redis.New(ctx, redis.Config{URL: url})
	require.NoError(t, err)
	defer client.Close()

	username := "tracker-test-" + time.Now().Format("150405.000000")
	lt := NewLoginTracker(client, LoginTrackerConfig{
		MaxAttempts:   3,
		AttemptWindow: time.Minute,
		BlockDuration: time.Minute,
	}, nil)
	defer client.Del(ctx, blockedLoginUserPrefix+username, failLoginUserPrefix+username)

	for i := 1; i <= 3; i++ {
		blocked, err := lt.RecordFailure(ctx, username, "")
		require.NoError(t, err)
		assert.Equal(t, i == 3, blocked)
	}

	blocked, err := lt.IsBlocked(ctx, username, "")
	require.NoError(t, err)
	assert.True(t, blocked)

	remaining, err := lt.RemainingAttempts(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}
