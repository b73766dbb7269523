package salescache

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/velmart/backend-store/internal/lock"
)

// TaskRefresh is the asynq task type for a scheduled cache refresh.
const TaskRefresh = "salescache:refresh"

// refreshLockKey serialises refreshes across worker replicas.
const refreshLockKey = "locks:salescache:refresh"

// NewRefreshTask builds the periodic refresh task. It carries no payload;
// the refresher always recomputes the full set.
func NewRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskRefresh, nil)
}

// TaskHandler processes refresh tasks under a distributed lock so only one
// worker recomputes the set at a time.
type TaskHandler struct {
	Refresher *Refresher
	Locker    lock.Locker
	LockTTL   time.Duration
}

// ProcessTask implements asynq.Handler.
func (h *TaskHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	if h == nil || h.Refresher == nil {
		return errors.New("salescache: task handler not configured")
	}
	if h.Locker.R == nil {
		_, err := h.Refresher.Refresh(ctx)
		return err
	}
	ttl := h.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return h.Locker.WithLock(ctx, refreshLockKey, ttl, func(ctx context.Context) error {
		_, err := h.Refresher.Refresh(ctx)
		return err
	})
}
