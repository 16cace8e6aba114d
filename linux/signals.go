//go:build linux

package linux

import (
	"context"

	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/godbus/dbus/v5"
)

const (
	deviceFoundSignal  = p2pDeviceIface + ".DeviceFound"
	deviceLostSignal   = p2pDeviceIface + ".DeviceLost"
	findStoppedSignal  = p2pDeviceIface + ".FindStopped"
	groupStartedSignal = p2pDeviceIface + ".GroupStarted"
	peerJoinedSignal   = groupIface + ".PeerJoined"

	roleClient = "client"
)

// Listen translates wpa_supplicant signals into events until ctx is cancelled,
// or until the bus connection is closed.
func (b *Backend) Listen(ctx context.Context, emit func(p2p.Event)) error {
	matches := [][]dbus.MatchOption{
		{dbus.WithMatchObjectPath(b.path), dbus.WithMatchInterface(p2pDeviceIface)},
		{dbus.WithMatchInterface(groupIface), dbus.WithMatchMember("PeerJoined")},
	}
	for _, match := range matches {
		if err := b.conn.AddMatchSignal(match...); err != nil {
			return errorkinds.Transport(err, "add-match", "Cannot subscribe to wpa_supplicant signals")
		}
		defer b.conn.RemoveMatchSignal(match...)
	}

	signals := make(chan *dbus.Signal, 32)
	b.conn.Signal(signals)
	defer b.conn.RemoveSignal(signals)

	b.log.Debugf("Listening for signals on %s", b.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-b.synthetic:
			emit(ev)

		case sig, ok := <-signals:
			if !ok {
				return errorkinds.Transport(nil, "signal-listener", "Bus connection was closed")
			}

			ev, ok, err := b.translate(ctx, sig)
			if err != nil {
				b.log.Warnf("Skipping signal %s: %v", sig.Name, err)
				continue
			}

			if ok {
				emit(ev)
			}
		}
	}
}

// translate converts a signal into at most one event.
func (b *Backend) translate(ctx context.Context, sig *dbus.Signal) (p2p.Event, bool, error) {
	if sig.Name != peerJoinedSignal && sig.Path != b.path {
		return p2p.Event{}, false, nil
	}

	switch sig.Name {
	case deviceFoundSignal:
		path, err := objectPathArg(sig)
		if err != nil {
			return p2p.Event{}, false, err
		}

		props, err := b.fetchPeer(ctx, path)
		if err != nil {
			return p2p.Event{}, false, err
		}

		device, err := decodePeer(props)
		if err != nil {
			return p2p.Event{}, false, err
		}

		b.peers.store(path, device)

		return p2p.PeerFoundEvent(device), true, nil

	case deviceLostSignal:
		path, err := objectPathArg(sig)
		if err != nil {
			return p2p.Event{}, false, err
		}

		b.peers.remove(path)

	case findStoppedSignal:
		return p2p.DiscoveryStoppedEvent(), true, nil

	case groupStartedSignal:
		if len(sig.Body) < 1 {
			return p2p.Event{}, false, errorkinds.Decode(nil, "group-started", "Signal has no arguments")
		}

		props, ok := sig.Body[0].(map[string]dbus.Variant)
		if !ok {
			return p2p.Event{}, false, errorkinds.Decode(nil, "group-started", "Signal argument is not a dictionary")
		}

		role, _ := props["role"].Value().(string)
		if role == roleClient {
			if target := b.target.Swap(nil); target != nil {
				return p2p.ConnectedEvent(*target), true, nil
			}
		}

		return p2p.GroupCreatedEvent(), true, nil

	case peerJoinedSignal:
		path, err := objectPathArg(sig)
		if err != nil {
			return p2p.Event{}, false, err
		}

		address, ok := b.peers.addressOf(path)
		if !ok {
			return p2p.Event{}, false, errorkinds.Decode(nil, "peer-joined", "Unknown peer "+string(path))
		}

		return p2p.ConnectedEvent(address), true, nil
	}

	return p2p.Event{}, false, nil
}

func objectPathArg(sig *dbus.Signal) (dbus.ObjectPath, error) {
	if len(sig.Body) < 1 {
		return "", errorkinds.Decode(nil, "signal-argument", "Signal "+sig.Name+" has no arguments")
	}

	path, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok || !path.IsValid() {
		return "", errorkinds.Decode(nil, "signal-argument", "Signal "+sig.Name+" does not carry an object path")
	}

	return path, nil
}
