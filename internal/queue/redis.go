package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/BilalEnesS/doc-panel/internal/shared/metrics"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

const (
	payloadField          = "payload"
	defaultBlock          = 5 * time.Second
	defaultClaimIdle      = 5 * time.Minute
	defaultClaimInterval  = 30 * time.Second
	defaultMaxDeliveries  = 5
	defaultStreamMaxLen   = 100000
	defaultConsumerPrefix = "worker"
)

// Handler processes one decoded message. A nil return acknowledges it.
type Handler func(ctx context.Context, msg Message) error

// RedisQueue publishes to and consumes from a Redis stream with a consumer
// group. Unacknowledged entries are reclaimed after ClaimIdle and dropped
// after MaxDeliveries attempts.
type RedisQueue struct {
	Client   redis.UniversalClient
	Stream   string
	Group    string
	Consumer string

	Block         time.Duration
	ClaimIdle     time.Duration
	ClaimInterval time.Duration
	MaxDeliveries int64
	MaxLen        int64
}

// NewRedisQueue returns a queue with a unique consumer name.
func NewRedisQueue(client redis.UniversalClient, stream, group string) *RedisQueue {
	return &RedisQueue{
		Client:        client,
		Stream:        stream,
		Group:         group,
		Consumer:      defaultConsumerPrefix + "-" + uuid.NewString()[:8],
		Block:         defaultBlock,
		ClaimIdle:     defaultClaimIdle,
		ClaimInterval: defaultClaimInterval,
		MaxDeliveries: defaultMaxDeliveries,
		MaxLen:        defaultStreamMaxLen,
	}
}

// Send appends msg to the stream.
func (q *RedisQueue) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode redis message: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: q.Stream,
		Values: map[string]any{payloadField: string(payload)},
	}
	if q.MaxLen > 0 {
		args.MaxLen = q.MaxLen
		args.Approx = true
	}
	if err := q.Client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd: %w", err)
	}
	return nil
}

// EnsureGroup creates the stream and consumer group when missing.
func (q *RedisQueue) EnsureGroup(ctx context.Context) error {
	err := q.Client.XGroupCreateMkStream(ctx, q.Stream, q.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis create group: %w", err)
	}
	return nil
}

// Consume reads the stream until ctx is done, running up to concurrency
// handlers at once. In-flight handlers are awaited before it returns.
func (q *RedisQueue) Consume(ctx context.Context, concurrency int, handle Handler) error {
	if err := q.EnsureGroup(ctx); err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	lastClaim := time.Time{}
	for ctx.Err() == nil {
		var batch []redis.XMessage
		if time.Since(lastClaim) >= q.claimInterval() {
			lastClaim = time.Now()
			claimed, err := q.reclaim(ctx)
			if err != nil && ctx.Err() == nil {
				telemetry.Warn("worker.document.reclaim_failed", map[string]any{"error": err.Error()})
			}
			batch = append(batch, claimed...)
		}

		fresh, err := q.read(ctx, int64(concurrency))
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			telemetry.Error("worker.document.receive_failed", map[string]any{"error": err.Error()})
			sleepCtx(ctx, time.Second)
			continue
		}
		batch = append(batch, fresh...)

		for _, entry := range batch {
			select {
			case <-ctx.Done():
				return nil
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(entry redis.XMessage) {
				defer wg.Done()
				defer func() { <-sem }()
				q.deliver(ctx, entry, handle)
			}(entry)
		}
	}
	return nil
}

func (q *RedisQueue) read(ctx context.Context, count int64) ([]redis.XMessage, error) {
	block := q.Block
	if block == 0 {
		block = defaultBlock
	}
	streams, err := q.Client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.Group,
		Consumer: q.Consumer,
		Streams:  []string{q.Stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []redis.XMessage
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

// reclaim claims entries idle longer than ClaimIdle from any consumer and
// acknowledges the ones that exhausted MaxDeliveries.
func (q *RedisQueue) reclaim(ctx context.Context) ([]redis.XMessage, error) {
	pending, err := q.Client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.Stream,
		Group:  q.Group,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis xpending: %w", err)
	}

	idle := q.ClaimIdle
	if idle <= 0 {
		idle = defaultClaimIdle
	}
	var claimIDs []string
	for _, p := range pending {
		if p.Idle < idle {
			continue
		}
		if q.MaxDeliveries > 0 && p.RetryCount >= q.MaxDeliveries {
			telemetry.Error("worker.document.dead_lettered", map[string]any{
				"stream_id":     p.ID,
				"receive_count": p.RetryCount,
			})
			metrics.IncQueueJob("dropped")
			q.ack(ctx, p.ID)
			continue
		}
		claimIDs = append(claimIDs, p.ID)
	}
	if len(claimIDs) == 0 {
		return nil, nil
	}
	msgs, err := q.Client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   q.Stream,
		Group:    q.Group,
		Consumer: q.Consumer,
		MinIdle:  idle,
		Messages: claimIDs,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis xclaim: %w", err)
	}
	return msgs, nil
}

func (q *RedisQueue) deliver(ctx context.Context, entry redis.XMessage, handle Handler) {
	raw, _ := entry.Values[payloadField].(string)
	fields := map[string]any{"stream_id": entry.ID}
	if strings.TrimSpace(raw) == "" {
		telemetry.Error("worker.document.empty_body", fields)
		metrics.IncQueueJob("dropped")
		q.ack(ctx, entry.ID)
		return
	}
	msg, err := DecodeMessage([]byte(raw))
	if err != nil || msg.DocumentID <= 0 {
		if err != nil {
			fields["error"] = err.Error()
		}
		fields["body_len"] = len(raw)
		telemetry.Error("worker.document.decode_failed", fields)
		metrics.IncQueueJob("dropped")
		q.ack(ctx, entry.ID)
		return
	}

	fields["document_id"] = msg.DocumentID
	if msg.RequestID != "" {
		fields["request_id"] = msg.RequestID
	}
	telemetry.Info("worker.document.received", fields)
	if err := handle(ctx, msg); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.document.failed", fields)
		metrics.IncQueueJob("failed")
		return
	}
	if q.ack(ctx, entry.ID) {
		telemetry.Info("worker.document.completed", fields)
		metrics.IncQueueJob("completed")
	}
}

func (q *RedisQueue) ack(ctx context.Context, id string) bool {
	if err := q.Client.XAck(context.WithoutCancel(ctx), q.Stream, q.Group, id).Err(); err != nil {
		telemetry.Error("worker.document.ack_failed", map[string]any{"stream_id": id, "error": err.Error()})
		return false
	}
	return true
}

func (q *RedisQueue) claimInterval() time.Duration {
	if q.ClaimInterval <= 0 {
		return defaultClaimInterval
	}
	return q.ClaimInterval
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var _ Client = (*RedisQueue)(nil)
