package api

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens/newslens/pkg/config"
)

func newTestQuota(t *testing.T, cfg config.BudgetConfig) (*Quota, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewQuota(client, cfg)
	require.NotNil(t, q)
	return q, mr
}

func TestQuota_CommandLimit(t *testing.T) {
	q, _ := newTestQuota(t, config.BudgetConfig{
		MaxCommandsPerUserDaily: 2,
		MaxCostCentsPerCommand:  10,
	})
	ctx := context.Background()

	assert.True(t, q.Allow(ctx, "u1"))
	assert.True(t, q.Allow(ctx, "u1"))
	assert.False(t, q.Allow(ctx, "u1"))

	// A different user has their own counter.
	assert.True(t, q.Allow(ctx, "u2"))
}

func TestQuota_CostLimit(t *testing.T) {
	q, _ := newTestQuota(t, config.BudgetConfig{
		MaxCommandsPerUserDaily:  100,
		MaxCostCentsPerCommand:   40,
		MaxCostCentsPerUserDaily: 100,
	})
	ctx := context.Background()

	assert.True(t, q.Allow(ctx, "u1"))  // 40 reserved
	assert.True(t, q.Allow(ctx, "u1"))  // 80 reserved
	assert.False(t, q.Allow(ctx, "u1")) // 120 would exceed 100
}

func TestQuota_RejectionRefundsReservation(t *testing.T) {
	q, mr := newTestQuota(t, config.BudgetConfig{
		MaxCommandsPerUserDaily: 1,
		MaxCostCentsPerCommand:  10,
	})
	ctx := context.Background()

	require.True(t, q.Allow(ctx, "u1"))
	require.False(t, q.Allow(ctx, "u1"))

	day := q.now().UTC().Format("2006-01-02")
	count, err := mr.Get("quota:cmds:u1:" + day)
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}

func TestQuota_AnonymousAndDisabled(t *testing.T) {
	q, _ := newTestQuota(t, config.BudgetConfig{MaxCommandsPerUserDaily: 1})
	ctx := context.Background()

	// Requests without a user are never throttled.
	assert.True(t, q.Allow(ctx, ""))
	assert.True(t, q.Allow(ctx, ""))

	// A nil gate means quotas are disabled entirely.
	var disabled *Quota
	assert.True(t, disabled.Allow(ctx, "u1"))
}

func TestQuota_FailsOpenWhenRedisDown(t *testing.T) {
	q, mr := newTestQuota(t, config.BudgetConfig{MaxCommandsPerUserDaily: 1})
	mr.Close()

	assert.True(t, q.Allow(context.Background(), "u1"))
}
