package sov

import (
	"context"
	"sync"

	"github.com/garyjia/sov-billing/internal/domain/entity"
)

// DrawCounter reports whether any draw exists for a job
type DrawCounter func(ctx context.Context, job entity.JobKey) (bool, error)

// LockCache answers "is this job's SOV locked" from one code path. Locks
// never go away, so a positive answer is cached until Invalidate is called
type LockCache struct {
	mu     sync.RWMutex
	locked map[entity.JobKey]bool
	count  DrawCounter
}

// NewLockCache creates a cache backed by count
func NewLockCache(count DrawCounter) *LockCache {
	return &LockCache{locked: make(map[entity.JobKey]bool), count: count}
}

// IsLocked reports whether the job has at least one draw
func (c *LockCache) IsLocked(ctx context.Context, job entity.JobKey) (bool, error) {
	c.mu.RLock()
	locked := c.locked[job]
	c.mu.RUnlock()
	if locked {
		return true, nil
	}

	has, err := c.count(ctx, job)
	if err != nil {
		return false, err
	}
	if has {
		c.mu.Lock()
		c.locked[job] = true
		c.mu.Unlock()
	}
	return has, nil
}

// MarkLocked records that a draw was just written for job
func (c *LockCache) MarkLocked(job entity.JobKey) {
	c.mu.Lock()
	c.locked[job] = true
	c.mu.Unlock()
}

// Invalidate drops the cached answer for job
func (c *LockCache) Invalidate(job entity.JobKey) {
	c.mu.Lock()
	delete(c.locked, job)
	c.mu.Unlock()
}
