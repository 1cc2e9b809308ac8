package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairpos/internal/config"
	"repairpos/pkg/logger"
)

type fakeRebuilder struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeRebuilder) RebuildChangedSince(_ context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, since)
	return len(f.calls), f.err
}

func (f *fakeRebuilder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRebuildCoversLookbackWindow(t *testing.T) {
	view := &fakeRebuilder{}
	w := NewRebuildWorker(view, config.WorkerConfig{RebuildInterval: time.Minute, Lookback: time.Hour}, logger.NewNop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	w.tick(context.Background())

	require.Len(t, view.calls, 1)
	assert.Equal(t, now.Add(-time.Hour), view.calls[0])
}

func TestLookbackNeverShorterThanInterval(t *testing.T) {
	w := NewRebuildWorker(&fakeRebuilder{}, config.WorkerConfig{RebuildInterval: 10 * time.Minute, Lookback: time.Minute}, logger.NewNop())
	assert.Equal(t, 10*time.Minute, w.lookback)
}

func TestRebuildErrorKeepsWorkerAlive(t *testing.T) {
	view := &fakeRebuilder{err: errors.New("connection refused")}
	w := NewRebuildWorker(view, config.WorkerConfig{RebuildInterval: time.Minute}, logger.NewNop())

	w.tick(context.Background())
	w.tick(context.Background())
	assert.Equal(t, 2, view.count())
}

func TestRunStopsOnCancel(t *testing.T) {
	view := &fakeRebuilder{}
	w := NewRebuildWorker(view, config.WorkerConfig{RebuildInterval: time.Hour}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return view.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

type fakeLock struct {
	held     bool
	err      error
	released int
}

func (l *fakeLock) TryAcquire(context.Context) (func(context.Context) error, bool, error) {
	if l.err != nil || l.held {
		return nil, false, l.err
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, true, nil
}

func TestPassSkippedWhileAnotherWorkerHoldsLock(t *testing.T) {
	view := &fakeRebuilder{}
	lock := &fakeLock{held: true}
	w := NewRebuildWorker(view, config.WorkerConfig{RebuildInterval: time.Minute}, logger.NewNop()).WithLock(lock)

	w.tick(context.Background())
	assert.Equal(t, 0, view.count())
}

func TestPassReleasesLock(t *testing.T) {
	view := &fakeRebuilder{}
	lock := &fakeLock{}
	w := NewRebuildWorker(view, config.WorkerConfig{RebuildInterval: time.Minute}, logger.NewNop()).WithLock(lock)

	w.tick(context.Background())
	assert.Equal(t, 1, view.count())
	assert.Equal(t, 1, lock.released)
}

func TestLockErrorFallsBackToUnguardedPass(t *testing.T) {
	view := &fakeRebuilder{}
	w := NewRebuildWorker(view, config.WorkerConfig{RebuildInterval: time.Minute}, logger.NewNop()).
		WithLock(&fakeLock{err: errors.New("redis down")})

	w.tick(context.Background())
	assert.Equal(t, 1, view.count())
}
