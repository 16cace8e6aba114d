package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func peerEvent(t *testing.T, i int) p2p.Event {
	t.Helper()

	return p2p.PeerFoundEvent(p2p.Device{Address: p2p.MacAddress{0x02, 0, 0, 0, 0, byte(i)}})
}

func TestAllSubscribersReceiveEventsInOrder(t *testing.T) {
	const subscribers, events = 4, 50

	bus := New(events)
	defer bus.Close()

	subs := make([]*Subscription, subscribers)
	for i := range subs {
		subs[i] = bus.Subscribe()
	}

	for i := 0; i < events; i++ {
		bus.Publish(peerEvent(t, i))
	}

	ctx := testContext(t)

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()

			for i := 0; i < events; i++ {
				ev, err := sub.Recv(ctx)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, peerEvent(t, i), ev)
			}
		}(sub)
	}
	wg.Wait()
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	bus := New(8)
	defer bus.Close()

	early := bus.Subscribe()
	bus.Publish(p2p.DiscoveryStartedEvent())

	late := bus.Subscribe()
	bus.Publish(p2p.DiscoveryStoppedEvent())

	ctx := testContext(t)

	ev, err := early.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, p2p.DiscoveryStarted, ev.Kind)

	ev, err = late.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, p2p.DiscoveryStopped, ev.Kind)
}

func TestSlowSubscriberIsToldAboutMissedEvents(t *testing.T) {
	bus := New(2)
	defer bus.Close()

	slow := bus.Subscribe()
	fast := bus.Subscribe()

	ctx := testContext(t)

	for i := 0; i < 5; i++ {
		bus.Publish(peerEvent(t, i))

		ev, err := fast.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, peerEvent(t, i), ev)
	}

	// Subscribing is ordered after every earlier publish.
	bus.Subscribe().Close()

	for i := 0; i < 2; i++ {
		ev, err := slow.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, peerEvent(t, i), ev)
	}

	// Events 2, 3 and 4 did not fit. The next one published is delivered after the gap is reported.
	bus.Publish(peerEvent(t, 5))

	_, err := slow.Recv(ctx)
	var lagged *errorkinds.LaggedError
	require.ErrorAs(t, err, &lagged)
	assert.EqualValues(t, 3, lagged.Missed)

	ev, err := slow.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, peerEvent(t, 5), ev)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	bus := New(4)

	sub := bus.Subscribe()
	bus.Publish(p2p.GroupCreatedEvent())
	bus.Close()
	bus.Close()

	assert.True(t, bus.Closed())

	ctx := testContext(t)

	ev, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, p2p.GroupCreated, ev.Kind)

	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, errorkinds.ErrChannelClosed)

	bus.Publish(p2p.GroupCreatedEvent())

	after := bus.Subscribe()
	_, err = after.Recv(ctx)
	assert.ErrorIs(t, err, errorkinds.ErrChannelClosed)

	sub.Close()
	after.Close()
}

func TestRecvHonoursContext(t *testing.T) {
	bus := New(1)
	defer bus.Close()

	sub := bus.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTrailingMissedEventsAreReported(t *testing.T) {
	bus := New(2)
	defer bus.Close()

	sub := bus.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(peerEvent(t, i))
	}

	ctx := testContext(t)

	for i := 0; i < 2; i++ {
		ev, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, peerEvent(t, i), ev)
	}

	_, err := sub.Recv(ctx)
	var lagged *errorkinds.LaggedError
	require.ErrorAs(t, err, &lagged)
	assert.EqualValues(t, 3, lagged.Missed)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = sub.Recv(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	bus.Publish(peerEvent(t, 5))

	ev, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, peerEvent(t, 5), ev)
}

func TestMissedEventsAreReportedBeforeClose(t *testing.T) {
	bus := New(2)

	sub := bus.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(peerEvent(t, i))
	}
	bus.Close()

	ctx := testContext(t)

	for i := 0; i < 2; i++ {
		ev, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, peerEvent(t, i), ev)
	}

	_, err := sub.Recv(ctx)
	var lagged *errorkinds.LaggedError
	require.ErrorAs(t, err, &lagged)
	assert.EqualValues(t, 3, lagged.Missed)

	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, errorkinds.ErrChannelClosed)
}

func TestClosedSubscriptionReportsNoMissedEvents(t *testing.T) {
	bus := New(1)
	defer bus.Close()

	sub := bus.Subscribe()
	sub.Close()

	bus.Publish(p2p.DiscoveryStartedEvent())
	bus.Publish(p2p.DiscoveryStoppedEvent())

	_, err := sub.Recv(testContext(t))
	assert.ErrorIs(t, err, errorkinds.ErrChannelClosed)
}
