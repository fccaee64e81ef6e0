// Package redis provides a generic.Locker shared by every process that
// talks to the same Redis, for deployments running several concierge
// instances against one database.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/warp/room-concierge/generic"
)

const (
	DefaultTTL        = 30 * time.Second
	DefaultRetryEvery = 25 * time.Millisecond
	DefaultPrefix     = "concierge:room-lock:"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is never released by us.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements generic.Locker with SET NX PX.
//
// The key expires after TTL so a crashed holder cannot block a room
// forever; TTL must exceed the longest operation done under the lock.
// Waiters poll at RetryEvery until their context is done.
type Locker struct {
	client     goredis.UniversalClient
	prefix     string
	ttl        time.Duration
	retryEvery time.Duration
}

// Option configures a Locker.
type Option func(*Locker)

func WithTTL(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.ttl = d
		}
	}
}

func WithRetryEvery(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retryEvery = d
		}
	}
}

func WithPrefix(p string) Option {
	return func(l *Locker) {
		if p != "" {
			l.prefix = p
		}
	}
}

func NewLocker(client goredis.UniversalClient, opts ...Option) *Locker {
	l := &Locker{
		client:     client,
		prefix:     DefaultPrefix,
		ttl:        DefaultTTL,
		retryEvery: DefaultRetryEvery,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the Redis key guarding a room.
func (l *Locker) Key(roomID generic.RoomID) string {
	return l.prefix + string(roomID)
}

// Lock acquires the room's key or fails with *generic.LockTimeoutError when
// ctx's deadline passes first.
func (l *Locker) Lock(ctx context.Context, roomID generic.RoomID) (func(), error) {
	start := time.Now()
	key := l.Key(roomID)
	token := uuid.NewString()

	limiter := rate.NewLimiter(rate.Every(l.retryEvery), 1)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, generic.LockWaitError(ctx, roomID, time.Since(start))
			}
			return nil, fmt.Errorf("room %s: acquire lock: %w", roomID, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, generic.LockWaitError(ctx, roomID, time.Since(start))
			}
			// The next retry would land past the deadline.
			return nil, &generic.LockTimeoutError{RoomID: roomID, Waited: time.Since(start)}
		}
	}
}

func (l *Locker) unlocker(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			// Best effort: on failure the key still expires after the TTL.
			_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		})
	}
}
