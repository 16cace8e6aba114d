package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/cskr/pubsub/v2"
)

const (
	// eventTopic is the single pubsub topic all events are published to.
	eventTopic uint = iota + 1

	// syncTopic has no subscribers. Publishing to it returns once the pubsub
	// goroutine has delivered every earlier event.
	syncTopic
)

// envelope holds a published event and its position in the event stream.
type envelope struct {
	seq   uint64
	event p2p.Event
}

// Bus broadcasts events to any number of subscribers.
//
// Each subscriber has its own bounded queue. Publishing never blocks: if a
// subscriber's queue is full, the event is dropped for that subscriber only,
// and the subscriber is told how many events it missed on its next receive.
type Bus struct {
	ps  *pubsub.PubSub[uint, envelope]
	seq uint64

	closed bool
	mu     sync.Mutex
}

// EventPublisher represents an interface that provides an event publisher.
type EventPublisher interface {
	// Publish publishes an event to the event stream.
	Publish(ev p2p.Event)
}

// EventSubscriber represents an interface that provides an event subscriber.
type EventSubscriber interface {
	// Subscribe subscribes to events published after the call.
	Subscribe() *Subscription
}

// New returns a new event bus, with capacity events buffered for each subscriber.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}

	return &Bus{ps: pubsub.New[uint, envelope](capacity)}
}

// Publish publishes an event to the event stream.
// Events published after Close are discarded.
func (b *Bus) Publish(ev p2p.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.seq++
	b.ps.TryPub(envelope{seq: b.seq, event: ev}, eventTopic)
}

// Subscribe subscribes to the event stream. The subscription only
// receives events published after this call returns.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan envelope)
		close(ch)

		return &Subscription{bus: b, ch: ch, next: b.seq + 1, unsub: func() {}}
	}

	ch := b.ps.Sub(eventTopic)

	return &Subscription{
		bus:  b,
		ch:   ch,
		next: b.seq + 1,
		unsub: func() {
			b.unsubscribe(ch)
		},
	}
}

// Close closes the event stream. Subscribers receive the events they already
// hold, and then observe a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	b.ps.Shutdown()
}

// Closed reports whether the event stream is closed.
func (b *Bus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}

// sync waits until every event published so far has been delivered or dropped,
// and returns the sequence number of the last one. It reports false if the bus
// is closed.
func (b *Bus) sync() (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return b.seq, false
	}

	b.ps.TryPub(envelope{}, syncTopic)

	return b.seq, true
}

// published returns the sequence number of the last published event.
func (b *Bus) published() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.seq
}

func (b *Bus) unsubscribe(ch chan envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.ps.Unsub(ch, eventTopic)
}

// Subscription receives events from a Bus. It is not safe for concurrent use.
type Subscription struct {
	bus     *Bus
	ch      chan envelope
	next    uint64
	pending *envelope

	unsub  func()
	once   sync.Once
	closed atomic.Bool
}

// Recv waits for the next event.
//
// If the subscriber missed events because its queue was full, Recv returns a
// *errorkinds.LaggedError once, and the next call returns the next available event.
// Missed events are reported even when nothing is published after them, and
// before the end of a closed stream.
// After the bus or the subscription is closed and all buffered events have been
// received, Recv returns errorkinds.ErrChannelClosed.
func (s *Subscription) Recv(ctx context.Context) (p2p.Event, error) {
	if s.pending != nil {
		env := s.pending
		s.pending = nil

		return env.event, nil
	}

	if ev, ok, err := s.tryRecv(); ok {
		return ev, err
	}

	if seq, ok := s.bus.sync(); ok && !s.closed.Load() {
		if ev, ok, err := s.tryRecv(); ok {
			return ev, err
		}

		// The queue is empty, so every event up to seq that was not received was dropped.
		if seq >= s.next {
			return p2p.Event{}, s.lagged(seq)
		}
	}

	select {
	case env, ok := <-s.ch:
		return s.receive(env, ok)

	case <-ctx.Done():
		return p2p.Event{}, ctx.Err()
	}
}

// Close unsubscribes from the event stream.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.unsub()
	})
}

func (s *Subscription) tryRecv() (p2p.Event, bool, error) {
	select {
	case env, ok := <-s.ch:
		ev, err := s.receive(env, ok)
		return ev, true, err

	default:
		return p2p.Event{}, false, nil
	}
}

func (s *Subscription) receive(env envelope, ok bool) (p2p.Event, error) {
	if !ok {
		// A closed bus delivers every retained event before closing the queue.
		if seq := s.bus.published(); !s.closed.Load() && seq >= s.next {
			return p2p.Event{}, s.lagged(seq)
		}

		return p2p.Event{}, errorkinds.ChannelClosed("event-subscription")
	}

	if env.seq > s.next {
		missed := env.seq - s.next
		s.next = env.seq + 1
		s.pending = &env

		return p2p.Event{}, &errorkinds.LaggedError{Missed: missed}
	}

	s.next = env.seq + 1

	return env.event, nil
}

func (s *Subscription) lagged(seq uint64) error {
	missed := seq - s.next + 1
	s.next = seq + 1

	return &errorkinds.LaggedError{Missed: missed}
}
