package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/room-concierge/generic"
)

func newTestLocker(t *testing.T, opts ...Option) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLocker(client, append([]Option{WithRetryEvery(5 * time.Millisecond)}, opts...)...), mr
}

func TestLocker_LockUnlock(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(l.Key("r1")))

	unlock()
	assert.False(t, mr.Exists(l.Key("r1")))

	// idempotent
	unlock()
}

func TestLocker_TimeoutWhileHeld(t *testing.T) {
	l, _ := newTestLocker(t)

	unlock, err := l.Lock(context.Background(), "r1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "r1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrLockTimeout))

	var lt *generic.LockTimeoutError
	require.ErrorAs(t, err, &lt)
	assert.Equal(t, generic.RoomID("r1"), lt.RoomID)
}

func TestLocker_RoomsIndependent(t *testing.T) {
	l, _ := newTestLocker(t)

	u1, err := l.Lock(context.Background(), "r1")
	require.NoError(t, err)
	defer u1()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	u2, err := l.Lock(ctx, "r2")
	require.NoError(t, err)
	u2()
}

func TestLocker_WaiterAcquiresAfterRelease(t *testing.T) {
	l, _ := newTestLocker(t)

	unlock, err := l.Lock(context.Background(), "r1")
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	u2, err := l.Lock(ctx, "r1")
	require.NoError(t, err)
	u2()
}

func TestLocker_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	l, mr := newTestLocker(t, WithTTL(time.Second))

	oldUnlock, err := l.Lock(context.Background(), "r1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists(l.Key("r1")))

	newUnlock, err := l.Lock(context.Background(), "r1")
	require.NoError(t, err)
	defer newUnlock()

	oldUnlock()
	assert.True(t, mr.Exists(l.Key("r1")), "stale holder must not release the new holder's lock")
}

func TestLocker_MutualExclusion(t *testing.T) {
	l, _ := newTestLocker(t)

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			unlock, err := l.Lock(ctx, "r1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
