package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens/newslens/pkg/config"
)

type fakeCleaner struct {
	mu     sync.Mutex
	sweeps int
	count  int64
	err    error
}

func (f *fakeCleaner) CleanupExpired(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return f.count, f.err
}

func (f *fakeCleaner) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

func TestService_SweepsImmediatelyOnStart(t *testing.T) {
	cleaner := &fakeCleaner{count: 3}
	svc := NewService(config.CleanupConfig{Interval: "1h"}, cleaner)

	svc.Start(context.Background())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return cleaner.sweepCount() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestService_SweepsOnTicker(t *testing.T) {
	cleaner := &fakeCleaner{}
	svc := NewService(config.CleanupConfig{Interval: "20ms"}, cleaner)

	svc.Start(context.Background())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return cleaner.sweepCount() >= 3
	}, time.Second, 10*time.Millisecond)
}

func TestService_SweepErrorDoesNotStopLoop(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("db down")}
	svc := NewService(config.CleanupConfig{Interval: "20ms"}, cleaner)

	svc.Start(context.Background())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return cleaner.sweepCount() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestService_StopIsIdempotentAndWaits(t *testing.T) {
	cleaner := &fakeCleaner{}
	svc := NewService(config.CleanupConfig{Interval: "1h"}, cleaner)

	svc.Start(context.Background())
	svc.Start(context.Background()) // second start is a no-op
	svc.Stop()

	sweeps := cleaner.sweepCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, sweeps, cleaner.sweepCount())
}
