package events

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDisabledLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()

	ch1, unsub1 := bus.Subscribe()
	ch2, unsub2 := bus.Subscribe()
	defer unsub1()
	defer unsub2()

	bus.Publish(Event{Type: PriceUpdated, Module: "market"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case event := <-ch:
			assert.Equal(t, PriceUpdated, event.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_UnsubscribeClosesChannelIdempotently(t *testing.T) {
	bus := NewBus()

	ch, unsub := bus.Subscribe()
	unsub()
	unsub() // second call is a no-op

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")
	assert.Equal(t, 0, bus.SubscriberCount())

	// Publishing to a bus with no subscribers must not panic.
	bus.Publish(Event{Type: TradeExecuted, Module: "trading"})
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()

	ch, unsub := bus.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the subscriber buffer without reading.
		for i := 0; i < 200; i++ {
			bus.Publish(Event{Type: PriceUpdated, Module: "market"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// Whatever was buffered is still readable.
	select {
	case event := <-ch:
		require.Equal(t, PriceUpdated, event.Type)
	default:
		t.Fatal("expected buffered events")
	}
}

func TestManager_EmitPublishesToBus(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe()
	defer unsub()

	log := newDisabledLogger()
	manager := NewManager(bus, log)

	manager.Emit(TradeExecuted, "trading", map[string]interface{}{"trade_id": int64(1)})

	select {
	case event := <-ch:
		assert.Equal(t, TradeExecuted, event.Type)
		assert.Equal(t, "trading", event.Module)
		assert.Equal(t, int64(1), event.Data["trade_id"])
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("emitted event did not reach the bus")
	}
}

func TestManager_NilBusIsSafe(t *testing.T) {
	manager := NewManager(nil, newDisabledLogger())
	manager.Emit(PriceUpdated, "market", nil)
	manager.EmitError("market", assert.AnError, nil)
}
