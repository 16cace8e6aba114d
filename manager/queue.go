package manager

import (
	"context"
	"sync"

	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
)

// commandQueue carries commands from every Channel handle to the worker.
// It is shut when the last handle is released, or when the worker aborts.
//
// The cmds channel is never closed. Senders register under mu and then block
// without it, so registering or releasing a handle never waits on a full queue.
type commandQueue struct {
	cmds    chan *command
	closing chan struct{}
	senders sync.WaitGroup

	refs   int
	closed bool

	mu sync.Mutex
}

func newCommandQueue(size int) *commandQueue {
	return &commandQueue{
		cmds:    make(chan *command, size),
		closing: make(chan struct{}),
		refs:    1,
	}
}

// send enqueues cmd, waiting for room in the queue if necessary.
func (q *commandQueue) send(ctx context.Context, cmd *command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errorkinds.ChannelClosed("command-queue")
	}
	q.senders.Add(1)
	q.mu.Unlock()

	defer q.senders.Done()

	select {
	case q.cmds <- cmd:
		return nil

	case <-q.closing:
		return errorkinds.ChannelClosed("command-queue")

	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquire registers a new handle. It fails if the queue is already shut.
func (q *commandQueue) acquire() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.refs++

	return true
}

// release unregisters a handle, and shuts the queue when none remain.
func (q *commandQueue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.refs--
	if q.refs <= 0 {
		q.shutLocked()
	}
}

// shut makes blocked and future senders fail.
func (q *commandQueue) shut() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.shutLocked()
}

func (q *commandQueue) isShut() bool {
	select {
	case <-q.closing:
		return true
	default:
		return false
	}
}

// drain waits for the senders that were blocked when the queue was shut, and
// passes every command left in the queue to fn. It must only be called after shut.
func (q *commandQueue) drain(fn func(cmd *command)) {
	q.senders.Wait()

	for {
		select {
		case cmd := <-q.cmds:
			fn(cmd)
		default:
			return
		}
	}
}

func (q *commandQueue) shutLocked() {
	if q.closed {
		return
	}

	q.closed = true
	close(q.closing)
}
