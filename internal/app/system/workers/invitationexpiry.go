// internal/app/system/workers/invitationexpiry.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InvitationExpirer marks pending invitations past their expiry as expired.
type InvitationExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// InvitationExpiry is a background worker that periodically expires
// overdue invitations.
type InvitationExpiry struct {
	store    InvitationExpirer
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewInvitationExpiry creates the worker. interval is how often it sweeps
// (e.g. 15 minutes).
func NewInvitationExpiry(store InvitationExpirer, logger *zap.Logger, interval time.Duration) *InvitationExpiry {
	return &InvitationExpiry{
		store:    store,
		log:      logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval.
func (w *InvitationExpiry) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("invitation expiry worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *InvitationExpiry) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("invitation expiry worker stopped")
}

func (w *InvitationExpiry) run() {
	defer w.wg.Done()

	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *InvitationExpiry) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := w.store.ExpireOverdue(ctx, w.now().UTC())
	if err != nil {
		w.log.Error("failed to expire invitations", zap.Error(err))
		return
	}
	if n > 0 {
		w.log.Info("expired invitations", zap.Int64("count", n))
	}
}
