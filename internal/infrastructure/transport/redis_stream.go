package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/volatiletech/null/v8"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
)

// Stream entry fields
const (
	FieldText               = "text"
	FieldSourceTimestamp    = "source_timestamp"
	FieldTransportMessageID = "transport_message_id"
)

// RedisStreamSource reads notifications appended to a Redis stream by the
// transport (or by the ingestion endpoint). The cursor is the last stream id.
type RedisStreamSource struct {
	client *redis.Client
	key    string
}

func NewRedisStreamSource(client *redis.Client, key string) *RedisStreamSource {
	return &RedisStreamSource{client: client, key: key}
}

func (s *RedisStreamSource) Name() string { return "redis:" + s.key }

func (s *RedisStreamSource) Fetch(ctx context.Context, cursor string, limit int) ([]entities.RawNotification, error) {
	start := "-"
	if cursor != "" {
		next, err := nextStreamID(cursor)
		if err != nil {
			return nil, err
		}
		start = next
	}
	if limit <= 0 {
		limit = 100
	}

	msgs, err := s.client.XRangeN(ctx, s.key, start, "+", int64(limit)).Result()
	if err != nil {
		return nil, domainerrors.Transient(fmt.Errorf("xrange %s: %w", s.key, err))
	}

	out := make([]entities.RawNotification, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, decodeStreamMessage(msg))
	}
	return out, nil
}

// Append adds one notification to the stream and returns its id.
func (s *RedisStreamSource) Append(ctx context.Context, n entities.RawNotification) (string, error) {
	ts := n.SourceTimestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	values := map[string]interface{}{
		FieldText:            n.Text,
		FieldSourceTimestamp: ts.UTC().Format(time.RFC3339Nano),
	}
	if n.TransportMessageID.Valid {
		values[FieldTransportMessageID] = n.TransportMessageID.String
	}
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{Stream: s.key, Values: values}).Result()
	if err != nil {
		return "", domainerrors.Transient(fmt.Errorf("xadd %s: %w", s.key, err))
	}
	return id, nil
}

func decodeStreamMessage(msg redis.XMessage) entities.RawNotification {
	n := entities.RawNotification{Cursor: msg.ID}
	if v, ok := msg.Values[FieldText].(string); ok {
		n.Text = v
	}
	if v, ok := msg.Values[FieldTransportMessageID].(string); ok && strings.TrimSpace(v) != "" {
		n.TransportMessageID = null.StringFrom(strings.TrimSpace(v))
	}
	if v, ok := msg.Values[FieldSourceTimestamp].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			n.SourceTimestamp = ts.UTC()
		}
	}
	if n.SourceTimestamp.IsZero() {
		// Fall back to the time Redis assigned the entry.
		if ms, err := strconv.ParseInt(strings.SplitN(msg.ID, "-", 2)[0], 10, 64); err == nil {
			n.SourceTimestamp = time.UnixMilli(ms).UTC()
		}
	}
	return n
}

// nextStreamID returns the smallest id strictly greater than id.
func nextStreamID(id string) (string, error) {
	msPart, seqPart, ok := strings.Cut(id, "-")
	if !ok {
		seqPart = "0"
	}
	ms, err := strconv.ParseUint(msPart, 10, 64)
	if err != nil {
		return "", domainerrors.Validation("malformed stream cursor %q", id)
	}
	seq, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return "", domainerrors.Validation("malformed stream cursor %q", id)
	}
	return fmt.Sprintf("%d-%d", ms, seq+1), nil
}
