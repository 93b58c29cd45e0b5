package events

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so that API replicas
// see progress of runs solved by any worker.
type RedisBroker struct {
    rdb *redis.Client
    mu  sync.Mutex
    ps  map[chan Event]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
    opt, err := redis.ParseURL(url)
    if err != nil { return nil, err }
    return &RedisBroker{rdb: redis.NewClient(opt), ps: map[chan Event]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Ping(ctx context.Context) error { return b.rdb.Ping(ctx).Err() }

func (b *RedisBroker) Close() error { return b.rdb.Close() }

func (b *RedisBroker) Subscribe(runID string) chan Event {
    ch := make(chan Event, 32)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, chanName(runID))
    // initial consume to ensure subscription
    _, _ = ps.Receive(ctx)
    b.mu.Lock()
    b.ps[ch] = ps
    b.mu.Unlock()
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            evt, err := decodeEvent(msg.Payload)
            if err != nil { continue }
            select { case ch <- evt: default: }
        }
    }()
    return ch
}

// Unsubscribe closes the underlying PubSub; the forwarding goroutine then
// closes ch.
func (b *RedisBroker) Unsubscribe(runID string, ch chan Event) {
    b.mu.Lock()
    ps := b.ps[ch]
    delete(b.ps, ch)
    b.mu.Unlock()
    if ps != nil { _ = ps.Close() }
}

func (b *RedisBroker) Publish(runID string, evt Event) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, err := json.Marshal(evt)
    if err != nil { return }
    _ = b.rdb.Publish(ctx, chanName(runID), data).Err()
}

func chanName(runID string) string { return "run:" + runID }

func decodeEvent(payload string) (Event, error) {
    var evt Event
    err := json.Unmarshal([]byte(payload), &evt)
    return evt, err
}
