package stage

import (
	"context"
	"sync"

	"github.com/hupe1980/scenemesh/core"
)

type userLock struct {
	ch   chan struct{}
	refs int
}

// userLocks hands out one lock per user id. Entries are dropped once nobody
// holds or waits for them.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[string]*userLock)}
}

// acquire blocks until the lock for id is free or ctx is done.
func (u *userLocks) acquire(ctx context.Context, id string) (func(), error) {
	u.mu.Lock()
	l, ok := u.m[id]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		u.m[id] = l
	}
	l.refs++
	u.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		u.drop(id, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			u.drop(id, l)
		})
	}, nil
}

func (u *userLocks) drop(id string, l *userLock) {
	u.mu.Lock()
	defer u.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(u.m, id)
	}
}

func (u *userLocks) len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.m)
}

// lockUser serializes operations for userID when Config.SerializeUsers is
// set. Calls nested inside handlers of the same user already run under the
// outer call's lock and pass straight through.
func (s *Stage) lockUser(ctx *core.Context, userID string) (func(), error) {
	if !s.config.SerializeUsers || s.nested(ctx, userID) {
		return func() {}, nil
	}
	return s.locks.acquire(ctx, userID)
}
