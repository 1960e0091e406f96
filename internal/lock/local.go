package lock

import (
	"context"
	"sync"
)

// LocalLocker serializes holders of the same key within one process
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	opts  Options
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates an in-process Locker. Only opts.Wait is used.
func NewLocalLocker(opts Options) *LocalLocker {
	return &LocalLocker{
		slots: make(map[string]*slot),
		opts:  opts.withDefaults(),
	}
}

// Obtain blocks until key is free, the wait time elapses or ctx is done
func (l *LocalLocker) Obtain(ctx context.Context, key string) (Lease, error) {
	s := l.acquireSlot(key)

	waitCtx, cancel := context.WithTimeout(ctx, l.opts.Wait)
	defer cancel()

	select {
	case s.ch <- struct{}{}:
		return &localLease{locker: l, key: key, slot: s}, nil
	case <-waitCtx.Done():
		l.releaseSlot(key, s)
		return nil, waitError(ctx)
	}
}

func (l *LocalLocker) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) releaseSlot(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

type localLease struct {
	locker *LocalLocker
	key    string
	slot   *slot
	once   sync.Once
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() {
		<-l.slot.ch
		l.locker.releaseSlot(l.key, l.slot)
	})
	return nil
}
