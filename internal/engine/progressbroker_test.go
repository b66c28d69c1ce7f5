package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/asyncops/internal/model"
)

func progressMsg(op, msg string) model.Progress {
	return model.Progress{OperationID: op, Message: msg}
}

func drain(ch <-chan model.Progress) []string {
	var got []string
	for p := range ch {
		got = append(got, p.Message)
	}
	return got
}

func TestProgressBrokerSingleSubscriber(t *testing.T) {
	b := NewProgressBroker()
	ch, unsub := b.Subscribe("op1")
	defer unsub()

	msgs := []string{"Step 1", "Step 2", "Step 3"}
	for _, m := range msgs {
		b.Publish(progressMsg("op1", m))
	}
	b.Close("op1")

	assert.Equal(t, msgs, drain(ch))
}

func TestProgressBrokerMultipleSubscribers(t *testing.T) {
	b := NewProgressBroker()
	ch1, unsub1 := b.Subscribe("op1")
	defer unsub1()
	ch2, unsub2 := b.Subscribe("op1")
	defer unsub2()

	b.Publish(progressMsg("op1", "hello"))
	b.Close("op1")

	for i, ch := range []<-chan model.Progress{ch1, ch2} {
		assert.Equal(t, []string{"hello"}, drain(ch), "subscriber %d", i+1)
	}
}

func TestProgressBrokerLateSubscriberGetsClosed(t *testing.T) {
	b := NewProgressBroker()
	b.Publish(progressMsg("op1", "early"))
	b.Close("op1")

	ch, unsub := b.Subscribe("op1")
	defer unsub()

	_, ok := <-ch
	assert.False(t, ok, "late subscriber should get a closed channel")
}

func TestProgressBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := NewProgressBroker()
	ch, unsub := b.Subscribe("op1")
	unsub()

	b.Publish(progressMsg("op1", "after unsub"))
	b.Close("op1")

	select {
	case p, ok := <-ch:
		assert.False(t, ok, "got unexpected update %q after unsubscribe", p.Message)
	default:
	}
}

func TestProgressBrokerPublishToUnknownOperationIsNoop(t *testing.T) {
	b := NewProgressBroker()
	b.Publish(progressMsg("nonexistent", "x"))
	b.Close("nonexistent")
}

func TestProgressBrokerPrunesOldMarkers(t *testing.T) {
	b := NewProgressBroker()
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Close("old")
	now = now.Add(2 * closedMarkerTTL)
	b.Close("new")

	b.mu.Lock()
	_, oldKept := b.topics["old"]
	_, newKept := b.topics["new"]
	b.mu.Unlock()

	assert.False(t, oldKept, "expired marker was not pruned")
	assert.True(t, newKept, "fresh marker was pruned")
}

func TestProgressBrokerShutdownClosesOpenTopics(t *testing.T) {
	b := NewProgressBroker()
	pending, unsub := b.Subscribe("queued")
	defer unsub()

	b.Shutdown()

	select {
	case _, ok := <-pending:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("open subscription was not closed by Shutdown")
	}

	late, unsubLate := b.Subscribe("other")
	defer unsubLate()
	_, ok := <-late
	assert.False(t, ok, "subscription after Shutdown should be closed")

	b.mu.Lock()
	defer b.mu.Unlock()
	_, opened := b.topics["other"]
	require.False(t, opened, "Shutdown broker must not open new topics")
}
