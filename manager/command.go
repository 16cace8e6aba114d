package manager

import (
	"context"
	"sync"

	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/google/uuid"
)

type commandKind uint8

const (
	discoverCommand commandKind = iota
	stopDiscoveryCommand
	connectCommand
	createGroupCommand
)

func (k commandKind) String() string {
	switch k {
	case discoverCommand:
		return "discover"
	case stopDiscoveryCommand:
		return "stop-discovery"
	case connectCommand:
		return "connect"
	case createGroupCommand:
		return "create-group"
	}

	return "unknown"
}

// command is a request routed through the worker to the backend.
type command struct {
	kind    commandKind
	address p2p.MacAddress
	pending *Pending
}

func newCommand(kind commandKind, address p2p.MacAddress) *command {
	return &command{
		kind:    kind,
		address: address,
		pending: &Pending{
			id:   uuid.New(),
			done: make(chan struct{}),
		},
	}
}

// invoke calls the backend operation that matches the command.
func (c *command) invoke(ctx context.Context, backend p2p.Backend) error {
	switch c.kind {
	case discoverCommand:
		return backend.DiscoverPeers(ctx)
	case stopDiscoveryCommand:
		return backend.StopDiscovery(ctx)
	case connectCommand:
		return backend.Connect(ctx, c.address)
	case createGroupCommand:
		return backend.CreateGroup(ctx)
	}

	return errorkinds.ErrNotSupported
}

// Pending is the completion handle of a submitted command.
// It is resolved exactly once, when the daemon accepts or rejects the command.
type Pending struct {
	id   uuid.UUID
	err  error
	done chan struct{}
	once sync.Once
}

// ID returns the identifier of the command, as it appears in the logs.
func (p *Pending) ID() uuid.UUID {
	return p.id
}

// Done returns a channel that is closed once the command completes.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the outcome of the command. It returns nil until Done is closed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait waits for the command to complete and returns its outcome.
// Cancelling ctx stops the wait, not the command.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pending) resolve(err error) bool {
	resolved := false
	p.once.Do(func() {
		p.err = err
		close(p.done)
		resolved = true
	})

	return resolved
}
