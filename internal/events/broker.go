// Package events fans solve run progress out to subscribers, in process or
// over Redis pub/sub.
package events

import (
    "sync"
)

// Event types published for a run.
const (
    RunStatus   = "run.status" // snapshot sent to new subscribers
    RunStarted  = "run.started"
    RunProgress = "run.progress"
    RunFinished = "run.finished"
)

type Event struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data,omitempty"`
}

// Terminal reports whether no further events follow e on its run.
func (e Event) Terminal() bool { return e.Type == RunFinished }

// Publisher is the producing side, used by the solve worker.
type Publisher interface {
    Publish(runID string, evt Event)
}

// EventBroker is implemented by Broker and RedisBroker.
type EventBroker interface {
    Publisher
    Subscribe(runID string) chan Event
    // Unsubscribe detaches ch; ch is closed once no more events arrive on it.
    Unsubscribe(runID string, ch chan Event)
}

// Broker is the in-process broker. Slow subscribers drop events instead of
// blocking the publisher.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan Event]struct{} // runId -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan Event {
    ch := make(chan Event, 32)
    b.mu.Lock()
    if b.subs[runID] == nil { b.subs[runID] = map[chan Event]struct{}{} }
    b.subs[runID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan Event) {
    b.mu.Lock()
    defer b.mu.Unlock()
    m := b.subs[runID]
    if _, ok := m[ch]; !ok { return }
    delete(m, ch)
    if len(m) == 0 { delete(b.subs, runID) }
    close(ch)
}

func (b *Broker) Publish(runID string, evt Event) {
    b.mu.Lock()
    m := b.subs[runID]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}

// Subscribers counts the live subscriptions of runID.
func (b *Broker) Subscribers(runID string) int {
    b.mu.Lock(); defer b.mu.Unlock()
    return len(b.subs[runID])
}
