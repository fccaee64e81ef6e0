package generic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// LOCKER - Per-room mutual exclusion
// =============================================================================

// Locker serializes every load/validate/save cycle on one room.
// Rooms are independent: there is no global lock.
type Locker interface {
	// Lock blocks until the room's lock is held or ctx is done. Callers bound
	// the wait with a context deadline; expiry yields *LockTimeoutError.
	// The returned unlock is idempotent.
	Lock(ctx context.Context, roomID RoomID) (unlock func(), err error)
}

// LockWaitError converts a finished context into the error a Locker returns.
func LockWaitError(ctx context.Context, roomID RoomID, waited time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &LockTimeoutError{RoomID: roomID, Waited: waited}
	}
	return fmt.Errorf("room %s: lock wait aborted: %w", roomID, ctx.Err())
}

// =============================================================================
// IN-PROCESS LOCKS
// =============================================================================

// RoomLocks is an in-process Locker. Each room gets a one-slot semaphore;
// waiters queue on the channel and acquire in arrival order.
// Entries are dropped once nobody holds or waits for them.
type RoomLocks struct {
	mu    sync.Mutex
	rooms map[RoomID]*roomLock
}

type roomLock struct {
	sem  chan struct{}
	refs int // holders + waiters
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{rooms: make(map[RoomID]*roomLock)}
}

func (l *RoomLocks) Lock(ctx context.Context, roomID RoomID) (func(), error) {
	start := time.Now()

	l.mu.Lock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{sem: make(chan struct{}, 1)}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-rl.sem
				l.release(roomID, rl)
			})
		}, nil
	case <-ctx.Done():
		l.release(roomID, rl)
		return nil, LockWaitError(ctx, roomID, time.Since(start))
	}
}

func (l *RoomLocks) release(roomID RoomID, rl *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.rooms, roomID)
	}
}

// Len returns the number of rooms currently locked or awaited.
func (l *RoomLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
