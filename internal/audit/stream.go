package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream used when none is configured.
const DefaultStream = "auditoria360:parametros:changes"

const streamField = "entry"

// StreamLog appends entries to a capped Redis stream.
type StreamLog struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewStreamLog returns a StreamLog. A maxLen of zero leaves the stream uncapped.
func NewStreamLog(client redis.Cmdable, stream string, maxLen int64) *StreamLog {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamLog{client: client, stream: stream, maxLen: maxLen}
}

// Append implements Log.
func (l *StreamLog) Append(ctx context.Context, entry Entry) error {
	if l == nil || l.client == nil {
		return errors.New("audit: stream log not initialised")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: l.stream,
		Values: map[string]any{streamField: string(payload)},
	}
	if l.maxLen > 0 {
		args.MaxLen = l.maxLen
		args.Approx = true
	}
	if err := l.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("audit: xadd %s: %w", l.stream, err)
	}
	return nil
}

// Recent returns up to count entries, newest first.
func (l *StreamLog) Recent(ctx context.Context, count int64) ([]Entry, error) {
	msgs, err := l.client.XRevRangeN(ctx, l.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("audit: xrevrange %s: %w", l.stream, err)
	}
	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values[streamField].(string)
		if !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("audit: decode %s: %w", msg.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
