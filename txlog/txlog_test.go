package txlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/fuse/codec"
	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/variables"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(t *testing.T) *core.Registry {
	t.Helper()
	r := core.NewRegistry(core.WithLogger(testLogger()))
	require.NoError(t, variables.Register(r))
	r.Seal()
	return r
}

// setupTestLog starts a miniredis instance and opens a Log against it.
func setupTestLog(t *testing.T) (*Log, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	l, err := Open(context.Background(), fmt.Sprintf("redis://%s", mr.Addr()), testRegistry(t), WithLogger(testLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func pointTx(t *testing.T, seconds float64, x, y float64) *core.Transaction {
	t.Helper()
	stamp := core.Seconds(seconds)
	tx := core.NewTransaction(stamp)
	tx.AddInvolvedStamp(stamp)
	require.NoError(t, tx.AddVariable(variables.NewPointVariable(stamp, id.Nil, x, y)))
	return tx
}

func TestOpen(t *testing.T) {
	t.Run("invalid URL", func(t *testing.T) {
		_, err := Open(context.Background(), "invalid://url", testRegistry(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})

	t.Run("connection failure", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := Open(context.Background(), "redis://"+addr, testRegistry(t), WithLogger(testLogger()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})
}

func TestAppendRange(t *testing.T) {
	l, mr := setupTestLog(t)
	ctx := context.Background()

	first := pointTx(t, 1, 1, 2)
	second := pointTx(t, 2, 3, 4)

	n, err := l.Append(ctx, "robot", first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = l.Append(ctx, "robot", second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.True(t, mr.Exists(DefaultKeyPrefix+":robot"))

	got, err := l.Range(ctx, "robot")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])

	length, err := l.Len(ctx, "robot")
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)
}

func TestReplay(t *testing.T) {
	l, _ := setupTestLog(t)
	ctx := context.Background()

	_, err := l.Append(ctx, "robot", pointTx(t, 1, 1, 2))
	require.NoError(t, err)
	_, err = l.Append(ctx, "robot", pointTx(t, 3, 5, 6))
	require.NoError(t, err)

	merged, err := l.Replay(ctx, "robot")
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, 2, merged.Len())
	assert.Equal(t, core.Seconds(3), merged.Stamp())
	assert.Equal(t, []core.Time{core.Seconds(1), core.Seconds(3)}, merged.InvolvedStamps())

	empty, err := l.Replay(ctx, "nothing")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestMissingStreamIsEmpty(t *testing.T) {
	l, _ := setupTestLog(t)
	ctx := context.Background()

	got, err := l.Range(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := l.Len(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRangeCorruptEntry(t *testing.T) {
	l, mr := setupTestLog(t)
	ctx := context.Background()

	_, err := l.Append(ctx, "robot", pointTx(t, 1, 1, 2))
	require.NoError(t, err)
	_, err = mr.RPush(DefaultKeyPrefix+":robot", "garbage")
	require.NoError(t, err)

	got, err := l.Range(ctx, "robot")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, fuseerr.ErrMalformedStream))
	assert.Contains(t, err.Error(), "entry 1")
}

func TestRangeUnknownType(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	writer := New(client, testRegistry(t), WithLogger(testLogger()))
	_, err := writer.Append(ctx, "robot", pointTx(t, 1, 1, 2))
	require.NoError(t, err)

	empty := core.NewRegistry(core.WithLogger(testLogger()))
	reader := New(client, empty, WithLogger(testLogger()), WithCodecOptions(codec.WithLogger(testLogger())))
	_, err = reader.Range(ctx, "robot")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fuseerr.ErrUnknownType))
	assert.Zero(t, empty.Len())

	require.NoError(t, reader.Close(), "closing a borrowed client is a no-op")
	require.NoError(t, client.Ping(ctx).Err())
}

func TestKeyPrefixAndDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	l, err := Open(ctx, "redis://"+mr.Addr(), testRegistry(t), WithKeyPrefix("site-a"), WithLogger(testLogger()))
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, "site-a:robot", l.Key("robot"))

	_, err = l.Append(ctx, "robot", pointTx(t, 1, 0, 0))
	require.NoError(t, err)
	assert.True(t, mr.Exists("site-a:robot"))

	require.NoError(t, l.Delete(ctx, "robot"))
	assert.False(t, mr.Exists("site-a:robot"))
}

func TestAppendRejects(t *testing.T) {
	l, _ := setupTestLog(t)
	ctx := context.Background()

	_, err := l.Append(ctx, "", pointTx(t, 1, 0, 0))
	assert.True(t, errors.Is(err, fuseerr.ErrInvalidArgument))

	_, err = l.Append(ctx, "robot", nil)
	assert.True(t, errors.Is(err, fuseerr.ErrInvalidArgument))
}
