package ws

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solspore/gaming/internal/domain"
)

type fakeSignalBus struct {
	mu   sync.Mutex
	subs map[string]chan domain.Signal
}

func newFakeSignalBus() *fakeSignalBus {
	return &fakeSignalBus{subs: make(map[string]chan domain.Signal)}
}

func (b *fakeSignalBus) Publish(context.Context, string, []byte) error { return nil }

func (b *fakeSignalBus) Subscribe(_ context.Context, channel string) (<-chan domain.Signal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan domain.Signal, 8)
	b.subs[channel] = ch
	return ch, nil
}

func (b *fakeSignalBus) subscribed(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[channel]
	return ok
}

func (b *fakeSignalBus) emit(subscription string, sig domain.Signal) {
	b.mu.Lock()
	ch := b.subs[subscription]
	b.mu.Unlock()
	ch <- sig
}

func newTestHub() (*Hub, *fakeSignalBus) {
	bus := newFakeSignalBus()
	return NewHub(bus, slog.New(slog.DiscardHandler)), bus
}

func TestWildcardFeedCarriesConcreteChannel(t *testing.T) {
	h, bus := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.subscribeToChannel(ctx, "ch:odds:*")
	require.Eventually(t, func() bool {
		return bus.subscribed("ch:odds:*")
	}, time.Second, time.Millisecond)

	bus.emit("ch:odds:*", domain.Signal{Channel: "ch:odds:m1", Payload: []byte(`{"type":"odds"}`)})

	select {
	case msg := <-h.broadcast:
		assert.Equal(t, "ch:odds:m1", msg.channel)
		assert.Equal(t, `{"type":"odds"}`, string(msg.data))
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast from the wildcard feed")
	}
}

func TestBroadcastRoutesBySubscription(t *testing.T) {
	h, bus := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	require.Eventually(t, func() bool {
		return bus.subscribed("ch:odds:*") && bus.subscribed("ch:settlement")
	}, time.Second, time.Millisecond)

	narrowed := &client{
		send: make(chan []byte, 1),
		subs: map[string]bool{"ch:odds:m1": true},
	}
	other := &client{
		send: make(chan []byte, 1),
		subs: map[string]bool{"ch:odds:m2": true},
	}
	h.register <- narrowed
	h.register <- other

	bus.emit("ch:odds:*", domain.Signal{Channel: "ch:odds:m1", Payload: []byte(`{"marketId":"m1"}`)})

	select {
	case msg := <-narrowed.send:
		assert.Equal(t, `{"marketId":"m1"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("narrowed client did not receive its market's odds")
	}

	select {
	case <-other.send:
		t.Fatal("client subscribed to another market received the message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIsSubscribedMatching(t *testing.T) {
	narrowed := &client{subs: map[string]bool{"ch:odds:m1": true}}
	assert.True(t, narrowed.isSubscribed("ch:odds:m1"))
	assert.False(t, narrowed.isSubscribed("ch:odds:m2"))
	assert.False(t, narrowed.isSubscribed("ch:settlement"))

	wildcard := &client{subs: map[string]bool{"ch:odds:*": true, "ch:settlement": true}}
	assert.True(t, wildcard.isSubscribed("ch:odds:m1"))
	assert.True(t, wildcard.isSubscribed("ch:settlement"))
	assert.False(t, wildcard.isSubscribed("ch:other"))
}

func TestHandleSubscriptionNarrowing(t *testing.T) {
	c := &client{subs: map[string]bool{"ch:odds:*": true, "ch:settlement": true}}

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"ch:odds:*"}})
	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:odds:m1"}})

	assert.True(t, c.isSubscribed("ch:odds:m1"))
	assert.False(t, c.isSubscribed("ch:odds:m2"))
	assert.True(t, c.isSubscribed("ch:settlement"))
}
