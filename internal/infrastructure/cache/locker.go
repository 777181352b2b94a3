// Package cache provides keyed locks and delivery de-duplication, in memory
// for a single instance or backed by Redis when several instances share work.
package cache

import (
	"context"
	"sync"
)

// MemoryLocker is a keyed mutex for a single process
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	held chan struct{}
	refs int
}

// NewMemoryLocker creates an in-process keyed locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done
func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{held: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.held <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-kl.held
				l.release(key, kl)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ctx.Err()
	}
}

func (l *MemoryLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Keys returns the number of keys currently held or waited on
func (l *MemoryLocker) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
