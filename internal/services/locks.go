package services

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ownerLocks hands out one single-writer slot per owner. Entries are dropped
// once nobody holds or waits for them.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*ownerLock)}
}

func (l *ownerLocks) acquire(ctx context.Context, ownerID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[ownerID]
	if !ok {
		lock = &ownerLock{sem: semaphore.NewWeighted(1)}
		l.locks[ownerID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	if err := lock.sem.Acquire(ctx, 1); err != nil {
		l.unref(ownerID, lock)
		return nil, err
	}
	return func() {
		lock.sem.Release(1)
		l.unref(ownerID, lock)
	}, nil
}

func (l *ownerLocks) unref(ownerID string, lock *ownerLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, ownerID)
	}
}

func (l *ownerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
