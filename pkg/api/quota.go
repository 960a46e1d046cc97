package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newslens/newslens/pkg/config"
)

// Quota enforces the per-user daily limits on command count and spend.
// Counters live in redis keyed by user and UTC day, expiring after 48h.
type Quota struct {
	client       *redis.Client
	maxCommands  int
	maxCostCents float64
	reserveCents float64 // worst-case spend charged per command

	now func() time.Time
}

// NewQuota builds the quota gate from the budget config. A nil redis
// client is allowed and yields a nil gate, which the server treats as
// quotas disabled.
func NewQuota(client *redis.Client, cfg config.BudgetConfig) *Quota {
	if client == nil {
		return nil
	}
	return &Quota{
		client:       client,
		maxCommands:  cfg.MaxCommandsPerUserDaily,
		maxCostCents: cfg.MaxCostCentsPerUserDaily,
		reserveCents: cfg.MaxCostCentsPerCommand,
		now:          time.Now,
	}
}

// Allow reserves one command slot and the worst-case spend for the
// user. Redis being unreachable fails open: a broken quota store must
// not take the whole API down.
func (q *Quota) Allow(ctx context.Context, userID string) bool {
	if q == nil || userID == "" {
		return true
	}
	costCents := q.reserveCents
	day := q.now().UTC().Format("2006-01-02")

	cmdKey := fmt.Sprintf("quota:cmds:%s:%s", userID, day)
	costKey := fmt.Sprintf("quota:cost:%s:%s", userID, day)

	pipe := q.client.TxPipeline()
	cmds := pipe.Incr(ctx, cmdKey)
	cost := pipe.IncrByFloat(ctx, costKey, costCents)
	pipe.Expire(ctx, cmdKey, 48*time.Hour)
	pipe.Expire(ctx, costKey, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}

	if q.maxCommands > 0 && cmds.Val() > int64(q.maxCommands) {
		q.refund(ctx, cmdKey, costKey, costCents)
		return false
	}
	if q.maxCostCents > 0 && cost.Val() > q.maxCostCents {
		q.refund(ctx, cmdKey, costKey, costCents)
		return false
	}
	return true
}

// refund rolls back a rejected reservation so a denied request does
// not consume quota.
func (q *Quota) refund(ctx context.Context, cmdKey, costKey string, costCents float64) {
	pipe := q.client.TxPipeline()
	pipe.Decr(ctx, cmdKey)
	pipe.IncrByFloat(ctx, costKey, -costCents)
	_, _ = pipe.Exec(ctx)
}
