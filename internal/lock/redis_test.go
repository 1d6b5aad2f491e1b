package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T, wait time.Duration) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, 10*time.Second, wait, nil)
	l.newToken = func() string { return "token-1" }
	return l, mock
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	l, mock := newTestRedisLocker(t, 0)
	key := redisKeyPrefix + "order:42"

	mock.ExpectSetNX(key, "token-1", 10*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{key}, "token-1").SetVal(int64(1))

	release, err := l.Acquire(context.Background(), "order:42")
	require.NoError(t, err)
	release()
	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_HeldElsewhere(t *testing.T) {
	l, mock := newTestRedisLocker(t, 0)
	key := redisKeyPrefix + "order:42"

	mock.ExpectSetNX(key, "token-1", 10*time.Second).SetVal(false)

	_, err := l.Acquire(context.Background(), "order:42")
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_RedisError(t *testing.T) {
	l, mock := newTestRedisLocker(t, 0)
	key := redisKeyPrefix + "order:42"

	mock.ExpectSetNX(key, "token-1", 10*time.Second).SetErr(errors.New("connection refused"))

	_, err := l.Acquire(context.Background(), "order:42")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
	assert.Contains(t, err.Error(), "connection refused")
}
