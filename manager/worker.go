package manager

import (
	"context"
	"errors"

	"github.com/bluetuith-org/wifi-p2p/api/config"
	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/eventbus"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"golang.org/x/sync/errgroup"
)

// worker owns the backend. It executes commands one at a time, in queue order,
// while the backend's signal listener publishes events concurrently.
type worker struct {
	backend p2p.Backend
	queue   *commandQueue
	bus     *eventbus.Bus
	log     config.Logger

	done chan struct{}
}

func (w *worker) run() {
	defer close(w.done)
	defer w.bus.Close()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	g, gctx := errgroup.WithContext(ctx)

	if source, ok := w.backend.(p2p.SignalSource); ok {
		g.Go(func() error {
			return w.listen(gctx, source)
		})
	}

	g.Go(func() error {
		defer cancel(nil)

		return w.process(gctx)
	})

	if err := g.Wait(); err != nil {
		w.log.Errorf("Worker stopped: %v", err)
		return
	}

	w.log.Debugf("Worker stopped")
}

// listen runs the signal listener until the worker stops or the connection fails.
func (w *worker) listen(ctx context.Context, source p2p.SignalSource) error {
	err := source.Listen(ctx, w.bus.Publish)
	if err == nil || ctx.Err() != nil {
		return nil
	}

	if !errors.Is(err, errorkinds.ErrTransport) {
		err = errorkinds.Transport(err, "signal-listener", "Signal listener failed")
	}

	return err
}

// process executes commands until the queue is shut, or the listener fails.
func (w *worker) process(ctx context.Context) error {
	for {
		select {
		case cmd := <-w.queue.cmds:
			switch {
			case ctx.Err() != nil:
				w.resolve(cmd, transportFailure(context.Cause(ctx)))

			case w.queue.isShut():
				w.resolve(cmd, errorkinds.ChannelClosed("worker-shutdown"))

			default:
				w.execute(ctx, cmd)
			}

		case <-w.queue.closing:
			w.queue.drain(func(cmd *command) {
				w.resolve(cmd, errorkinds.ChannelClosed("worker-shutdown"))
			})

			return nil

		case <-ctx.Done():
			w.abort(context.Cause(ctx))
			return nil
		}
	}
}

func (w *worker) execute(ctx context.Context, cmd *command) {
	w.log.Debugf("Executing command %s (%s)", cmd.kind, cmd.pending.id)

	err := cmd.invoke(ctx, w.backend)
	if ctx.Err() != nil {
		err = transportFailure(context.Cause(ctx))
	}

	w.resolve(cmd, err)
}

// abort fails the queued commands after a fatal connection error.
func (w *worker) abort(cause error) {
	w.log.Warnf("Aborting queued commands: %v", cause)

	w.queue.shut()
	w.queue.drain(func(cmd *command) {
		w.resolve(cmd, transportFailure(cause))
	})
}

func (w *worker) resolve(cmd *command, err error) {
	if err != nil {
		w.log.Warnf("Command %s (%s) failed: %v", cmd.kind, cmd.pending.id, err)
	}

	if !cmd.pending.resolve(err) {
		w.log.Errorf("Command %s (%s) was already resolved", cmd.kind, cmd.pending.id)
	}
}

func transportFailure(cause error) error {
	if errors.Is(cause, errorkinds.ErrTransport) {
		return cause
	}

	return errorkinds.Transport(cause, "worker", "Connection to the daemon failed")
}
