package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeExpirer struct {
	mu    sync.Mutex
	calls int
	err   error
	n     int64
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.n, f.err
}

func (f *fakeExpirer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestInvitationExpiry_SweepsOnStartAndTick(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	store := &fakeExpirer{n: 3}
	w := NewInvitationExpiry(store, zap.New(core), 10*time.Millisecond)

	w.Start()
	deadline := time.Now().Add(time.Second)
	for store.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if store.count() < 2 {
		t.Fatalf("sweeps = %d, want at least 2", store.count())
	}
	if logs.FilterMessage("expired invitations").Len() == 0 {
		t.Error("expected an 'expired invitations' log entry")
	}
}

func TestInvitationExpiry_LogsStoreError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := &fakeExpirer{err: errors.New("mongo down")}
	w := NewInvitationExpiry(store, zap.New(core), time.Hour)

	w.sweep()

	if logs.FilterMessage("failed to expire invitations").Len() != 1 {
		t.Errorf("expected one error log, got %d entries", logs.Len())
	}
}
