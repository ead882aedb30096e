package eventstream

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"signalrelay/internal/metrics"
	"signalrelay/internal/roomevents"
)

// Publisher appends room lifecycle events to a Redis stream. Emit only
// enqueues; Run does the network I/O.
type Publisher struct {
	rdb    *redis.Client
	stream string
	maxLen int64
	queue  chan roomevents.Event
}

var _ roomevents.Sink = (*Publisher)(nil)

func NewPublisher(rdb *redis.Client, stream string, maxLen int64, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{
		rdb:    rdb,
		stream: stream,
		maxLen: maxLen,
		queue:  make(chan roomevents.Event, buffer),
	}
}

func (p *Publisher) Emit(ev roomevents.Event) {
	select {
	case p.queue <- ev:
	default:
		metrics.EventsDropped.Inc()
	}
}

// Run drains the queue until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			if err := p.publish(ctx, ev); err != nil {
				zap.L().Warn("eventstream.xadd",
					zap.String("kind", string(ev.Kind)),
					zap.String("room_id", ev.RoomID),
					zap.Error(err),
				)
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev roomevents.Event) error {
	return p.rdb.XAdd(ctx, p.xaddArgs(ev)).Err()
}

func (p *Publisher) xaddArgs(ev roomevents.Event) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: []interface{}{
			"kind", string(ev.Kind),
			"room_id", ev.RoomID,
			"peer_id", ev.PeerID,
			"role", ev.Role,
			"at", strconv.FormatInt(ev.At.UnixMilli(), 10),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	return args
}
