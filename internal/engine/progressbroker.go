package engine

import (
	"sync"
	"time"

	"github.com/seantiz/asyncops/internal/model"
)

// subscriberBufferSize is the channel buffer for each progress subscriber.
// Updates are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// closedMarkerTTL bounds how long a finished operation's closed marker is kept.
const closedMarkerTTL = time.Minute

// ProgressBroker fans out progress updates of running operations to
// subscribers. It is safe for concurrent use.
//
// Closed topics are retained as markers for a while so that subscribers
// arriving just after an operation finishes receive a closed channel instead
// of blocking forever.
type ProgressBroker struct {
	mu     sync.Mutex
	topics map[string]*progressTopic
	now    func() time.Time
	// shut is set by Shutdown; no new topics are opened after it.
	shut bool
}

type progressTopic struct {
	subs     map[int]chan model.Progress
	nextID   int
	closed   bool
	closedAt time.Time
}

// NewProgressBroker creates a new progress broker.
func NewProgressBroker() *ProgressBroker {
	return &ProgressBroker{
		topics: make(map[string]*progressTopic),
		now:    time.Now,
	}
}

// Subscribe returns a channel that receives progress updates for the given
// operation and an unsubscribe function. If the operation has already
// finished, the returned channel is immediately closed.
func (b *ProgressBroker) Subscribe(operationID string) (<-chan model.Progress, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Progress, subscriberBufferSize)
	if b.shut {
		close(ch)
		return ch, func() {}
	}

	t, ok := b.topics[operationID]
	if !ok {
		t = &progressTopic{subs: make(map[int]chan model.Progress)}
		b.topics[operationID] = t
	}

	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends an update to all subscribers of the operation.
func (b *ProgressBroker) Publish(p model.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[p.OperationID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- p:
		default:
			// Drop for slow subscribers to avoid blocking execution.
		}
	}
}

// Close signals that no more updates will be published for the operation.
// All subscriber channels are closed and Subscribe calls within the marker
// lifetime return a closed channel.
func (b *ProgressBroker) Close(operationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.pruneLocked(now)

	t, ok := b.topics[operationID]
	if !ok {
		if b.shut {
			return
		}
		b.topics[operationID] = &progressTopic{subs: make(map[int]chan model.Progress), closed: true, closedAt: now}
		return
	}

	t.closed = true
	t.closedAt = now
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}

// Shutdown closes every open topic and makes later subscriptions return a
// closed channel.
func (b *ProgressBroker) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.shut = true
	now := b.now()
	for _, t := range b.topics {
		if t.closed {
			continue
		}
		t.closed = true
		t.closedAt = now
		for id, ch := range t.subs {
			close(ch)
			delete(t.subs, id)
		}
	}
}

func (b *ProgressBroker) pruneLocked(now time.Time) {
	for id, t := range b.topics {
		if t.closed && now.Sub(t.closedAt) > closedMarkerTTL {
			delete(b.topics, id)
		}
	}
}
