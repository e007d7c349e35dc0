package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*miniredis.Miniredis, Locker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisPractitionerLocker(client, 5*time.Second)
}

func TestWithPractitionerLockRunsAndReleases(t *testing.T) {
	mr, locker := newTestLocker(t)
	id := uuid.New()

	called := false
	err := locker.WithPractitionerLock(context.Background(), id, func(ctx context.Context) error {
		called = true
		assert.True(t, mr.Exists(lockKey(id)))
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, mr.Exists(lockKey(id)))
}

func TestWithPractitionerLockContention(t *testing.T) {
	_, locker := newTestLocker(t)
	id := uuid.New()

	err := locker.WithPractitionerLock(context.Background(), id, func(ctx context.Context) error {
		inner := locker.WithPractitionerLock(ctx, id, func(context.Context) error {
			t.Fatal("nested lock on the same practitioner must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		// Another practitioner is independent.
		return locker.WithPractitionerLock(ctx, uuid.New(), func(context.Context) error { return nil })
	})
	require.NoError(t, err)
}

func TestWithPractitionerLockPropagatesError(t *testing.T) {
	mr, locker := newTestLocker(t)
	id := uuid.New()
	boom := errors.New("boom")

	err := locker.WithPractitionerLock(context.Background(), id, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(lockKey(id)))
}

func TestReleaseKeepsForeignToken(t *testing.T) {
	mr, locker := newTestLocker(t)
	id := uuid.New()

	err := locker.WithPractitionerLock(context.Background(), id, func(context.Context) error {
		// Simulate the lock expiring and being taken by someone else.
		mr.Set(lockKey(id), "someone-else")
		return nil
	})
	require.NoError(t, err)

	got, err := mr.Get(lockKey(id))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestPinger(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	assert.NoError(t, Pinger{Client: client}.Ping(context.Background()))
}
