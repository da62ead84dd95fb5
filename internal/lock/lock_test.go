package lock

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImdbKeyIgnoresCase(t *testing.T) {
	assert.Equal(t, ImdbKey("tt0111161"), ImdbKey(" TT0111161 "))
}

func TestMemoryLockerSerializesSameKey(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "imdb:tt1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "imdb:tt1")
	assert.ErrorIs(t, err, ErrTimeout)

	other, err := l.Lock(ctx, "imdb:tt2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx))

	again, err := l.Lock(ctx, "imdb:tt1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
	assert.Empty(t, l.keys)
}

func TestMemoryLockerHandsOverToWaiter(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan Unlock)
	go func() {
		u, err := l.Lock(ctx, "k")
		if err == nil {
			acquired <- u
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, unlock(ctx))
	select {
	case u := <-acquired:
		require.NoError(t, u(ctx))
	case <-time.After(time.Second):
		t.Fatal("waiter did not acquire released lock")
	}
}

func TestWithWaitBoundsAcquisition(t *testing.T) {
	inner := NewMemoryLocker()
	ctx := context.Background()

	assert.Same(t, inner, WithWait(inner, 0))

	l := WithWait(inner, 20*time.Millisecond)
	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	start := time.Now()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, unlock(ctx))
	again, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l, err := NewRedisLocker(client, time.Second, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, err)
	l.retry = 5 * time.Millisecond
	return l, mr
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "imdb:tt1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("imdb:tt1"))

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "imdb:tt1")
	assert.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("imdb:tt1"))
}

func TestRedisLockerDoesNotReleaseForeignLock(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "imdb:tt1")
	require.NoError(t, err)

	// Блокировка истекла, и ключ занял другой экземпляр.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("imdb:tt1", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("imdb:tt1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestNewRedisLockerRequiresClient(t *testing.T) {
	_, err := NewRedisLocker(nil, time.Second, slog.Default())
	assert.Error(t, err)
}
