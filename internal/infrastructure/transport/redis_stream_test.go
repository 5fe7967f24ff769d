package transport

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
)

func newStream(t *testing.T) (*miniredis.Miniredis, *RedisStreamSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStreamSource(client, "autodeposit:notifications")
}

func TestRedisStreamSource_AppendAndFetchAfterCursor(t *testing.T) {
	_, src := newStream(t)
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	var ids []string
	for i, text := range []string{"first", "second", "third"} {
		n := entities.RawNotification{Text: text, SourceTimestamp: ts.Add(time.Duration(i) * time.Second)}
		if i == 1 {
			n.TransportMessageID = null.StringFrom("msg-2")
		}
		id, err := src.Append(ctx, n)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.Equal(t, "redis:autodeposit:notifications", src.Name())

	all, err := src.Fetch(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "first", all[0].Text)
	require.Equal(t, ids[0], all[0].Cursor)
	require.True(t, all[0].SourceTimestamp.Equal(ts))
	require.False(t, all[0].TransportMessageID.Valid)
	require.Equal(t, null.StringFrom("msg-2"), all[1].TransportMessageID)

	rest, err := src.Fetch(ctx, ids[0], 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	require.Equal(t, "second", rest[0].Text)

	limited, err := src.Fetch(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	none, err := src.Fetch(ctx, ids[2], 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRedisStreamSource_TimestampFallsBackToEntryID(t *testing.T) {
	mr, src := newStream(t)
	_, err := mr.XAdd("autodeposit:notifications", "1700000000000-0", []string{FieldText, "no ts", FieldSourceTimestamp, "yesterday"})
	require.NoError(t, err)

	got, err := src.Fetch(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].SourceTimestamp.Equal(time.UnixMilli(1700000000000)))
}

func TestRedisStreamSource_Errors(t *testing.T) {
	mr, src := newStream(t)
	ctx := context.Background()

	_, err := src.Fetch(ctx, "not-a-cursor", 10)
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	mr.Close()
	_, err = src.Fetch(ctx, "", 10)
	require.True(t, domainerrors.IsTransient(err))
	_, err = src.Append(ctx, entities.RawNotification{Text: "x"})
	require.True(t, domainerrors.IsTransient(err))
}

func TestNextStreamID(t *testing.T) {
	next, err := nextStreamID("1700000000000-4")
	require.NoError(t, err)
	require.Equal(t, "1700000000000-5", next)

	next, err = nextStreamID("42")
	require.NoError(t, err)
	require.Equal(t, "42-1", next)
}
