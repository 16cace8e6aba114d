package manager

import (
	"context"
	"sync/atomic"

	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/eventbus"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
)

// Channel is a handle to the worker started by Manager.Initialize.
//
// Each command method returns once the command is queued. The returned
// *Pending resolves when the daemon accepts or rejects the command; the effect
// of the command is reported later as an event.
//
// Handles are shared with Clone, and each handle must be closed. The worker
// stops once every handle is closed. The command it is executing at that point
// completes normally, but commands still waiting in the queue are not sent to
// the daemon: their *Pending resolves with errorkinds.ErrChannelClosed.
type Channel struct {
	queue *commandQueue
	bus   *eventbus.Bus

	closed atomic.Bool
}

func newChannel(queue *commandQueue, bus *eventbus.Bus) *Channel {
	return &Channel{queue: queue, bus: bus}
}

// DiscoverPeers queues a peer discovery request.
func (c *Channel) DiscoverPeers(ctx context.Context) (*Pending, error) {
	return c.submit(ctx, newCommand(discoverCommand, p2p.MacAddress{}))
}

// StopDiscovery queues a request to stop peer discovery.
func (c *Channel) StopDiscovery(ctx context.Context) (*Pending, error) {
	return c.submit(ctx, newCommand(stopDiscoveryCommand, p2p.MacAddress{}))
}

// Connect queues a request to connect to the peer at address.
func (c *Channel) Connect(ctx context.Context, address p2p.MacAddress) (*Pending, error) {
	if address.IsZero() {
		return nil, errorkinds.InvalidAddress(address.String(), "Peer address is unset")
	}

	return c.submit(ctx, newCommand(connectCommand, address))
}

// CreateGroup queues a request to form a P2P group.
func (c *Channel) CreateGroup(ctx context.Context) (*Pending, error) {
	return c.submit(ctx, newCommand(createGroupCommand, p2p.MacAddress{}))
}

// SubscribeEvents subscribes to events published after this call.
// If the worker has stopped, the subscription is already closed.
func (c *Channel) SubscribeEvents() *eventbus.Subscription {
	return c.bus.Subscribe()
}

// Clone returns a new handle to the same worker.
// Cloning a closed handle, or a handle to a stopped worker, returns a closed handle.
func (c *Channel) Clone() *Channel {
	clone := newChannel(c.queue, c.bus)
	if c.closed.Load() || !c.queue.acquire() {
		clone.closed.Store(true)
	}

	return clone
}

// Close closes the handle. It is safe to call more than once.
func (c *Channel) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.queue.release()
	}
}

func (c *Channel) submit(ctx context.Context, cmd *command) (*Pending, error) {
	if c.closed.Load() {
		return nil, errorkinds.ChannelClosed("channel")
	}

	if err := c.queue.send(ctx, cmd); err != nil {
		return nil, err
	}

	return cmd.pending, nil
}
