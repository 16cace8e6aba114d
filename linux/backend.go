//go:build linux

package linux

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/bluetuith-org/wifi-p2p/api/config"
	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/godbus/dbus/v5"
)

const (
	wpaService     = "fi.w1.wpa_supplicant1"
	wpaPath        = dbus.ObjectPath("/fi/w1/wpa_supplicant1")
	wpaIface       = "fi.w1.wpa_supplicant1"
	p2pDeviceIface = "fi.w1.wpa_supplicant1.Interface.P2PDevice"
	peerIface      = "fi.w1.wpa_supplicant1.Peer"
	groupIface     = "fi.w1.wpa_supplicant1.Group"
	propsIface     = "org.freedesktop.DBus.Properties"

	interfaceUnknownError = "fi.w1.wpa_supplicant1.InterfaceUnknown"

	// The WPS provisioning method used for connect requests.
	wpsMethodPushButton = "pbc"
)

// Backend sends P2P requests to wpa_supplicant, and translates its signals into events.
type Backend struct {
	conn *dbus.Conn
	path dbus.ObjectPath
	log  config.Logger

	peers  *peerTable
	target atomic.Pointer[p2p.MacAddress]

	// synthetic holds events that the daemon does not signal by itself.
	synthetic chan p2p.Event

	fetchPeer func(ctx context.Context, path dbus.ObjectPath) (map[string]dbus.Variant, error)
}

// NewBackend resolves the wpa_supplicant object of the interface, and returns a backend bound to it.
func NewBackend(conn *dbus.Conn, interfaceName string, log config.Logger) (*Backend, error) {
	var path dbus.ObjectPath

	err := conn.Object(wpaService, wpaPath).Call(wpaIface+".GetInterface", 0, interfaceName).Store(&path)
	if err != nil {
		if name, _, ok := daemonError(err); ok && name == interfaceUnknownError {
			return nil, errorkinds.InvalidInterface(interfaceName, "wpa_supplicant does not manage the interface")
		}

		return nil, errorkinds.Transport(err, "get-interface", "Cannot resolve the interface with wpa_supplicant")
	}

	b := &Backend{
		conn:      conn,
		path:      path,
		log:       log,
		peers:     newPeerTable(),
		synthetic: make(chan p2p.Event, 16),
	}
	b.fetchPeer = b.peerProperties

	return b, nil
}

// DiscoverPeers starts a peer discovery scan.
func (b *Backend) DiscoverPeers(ctx context.Context) error {
	if err := b.call(ctx, "Find", map[string]dbus.Variant{}); err != nil {
		return classify(err, "p2p-find", "Cannot start peer discovery")
	}

	// wpa_supplicant does not signal the start of a scan.
	b.emitSynthetic(p2p.DiscoveryStartedEvent())

	return nil
}

// StopDiscovery stops a peer discovery scan.
// A rejection from the daemon is not an error, since it means no scan is running.
func (b *Backend) StopDiscovery(ctx context.Context) error {
	err := b.call(ctx, "StopFind")
	if err == nil {
		return nil
	}

	if name, diagnostic, ok := daemonError(err); ok {
		b.log.Debugf("Ignoring rejected stop request: %s: %s", name, diagnostic)
		return nil
	}

	return classify(err, "p2p-stop-find", "Cannot stop peer discovery")
}

// Connect starts associating with the peer at address, using push-button provisioning.
func (b *Backend) Connect(ctx context.Context, address p2p.MacAddress) error {
	peer, ok := b.peers.pathOf(address)
	if !ok {
		peer = peerPath(b.path, address)
	}

	args := map[string]dbus.Variant{
		"peer":       dbus.MakeVariant(peer),
		"wps_method": dbus.MakeVariant(wpsMethodPushButton),
	}
	if err := b.call(ctx, "Connect", args); err != nil {
		return classify(err, "p2p-connect", "Cannot connect to "+address.String())
	}

	b.target.Store(&address)

	return nil
}

// CreateGroup requests the formation of an autonomous P2P group.
func (b *Backend) CreateGroup(ctx context.Context) error {
	if err := b.call(ctx, "GroupAdd", map[string]dbus.Variant{}); err != nil {
		return classify(err, "p2p-group-add", "Cannot create a P2P group")
	}

	return nil
}

// Peers returns the peers discovered since the backend was created.
func (b *Backend) Peers() []p2p.Device {
	return b.peers.devices()
}

func (b *Backend) call(ctx context.Context, method string, args ...interface{}) error {
	return b.conn.Object(wpaService, b.path).CallWithContext(ctx, p2pDeviceIface+"."+method, 0, args...).Err
}

func (b *Backend) peerProperties(ctx context.Context, path dbus.ObjectPath) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant

	call := b.conn.Object(wpaService, path).CallWithContext(ctx, propsIface+".GetAll", 0, peerIface)
	if call.Err != nil {
		return nil, classify(call.Err, "peer-properties", "Cannot get properties of "+string(path))
	}

	if err := call.Store(&props); err != nil {
		return nil, errorkinds.Decode(err, "peer-properties", "Cannot decode properties of "+string(path))
	}

	return props, nil
}

func (b *Backend) emitSynthetic(ev p2p.Event) {
	select {
	case b.synthetic <- ev:
	default:
		b.log.Warnf("Dropping %s event, listener is not keeping up", ev.Kind)
	}
}

// classify converts a method call error into the error kinds of this module.
func classify(err error, at, msg string) error {
	if name, diagnostic, ok := daemonError(err); ok {
		return errorkinds.Backend(name, diagnostic, at)
	}

	return errorkinds.Transport(err, at, msg)
}

// daemonError extracts the name and message of an error replied by the daemon.
func daemonError(err error) (string, string, bool) {
	var derr dbus.Error

	var perr *dbus.Error
	switch {
	case errors.As(err, &derr):
	case errors.As(err, &perr) && perr != nil:
		derr = *perr
	default:
		return "", "", false
	}

	diagnostic := derr.Name
	if len(derr.Body) > 0 {
		if msg, ok := derr.Body[0].(string); ok {
			diagnostic = msg
		}
	}

	return derr.Name, diagnostic, true
}
