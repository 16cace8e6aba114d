package manager

import (
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/wifi-p2p/api/config"
	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/eventbus"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/bluetuith-org/wifi-p2p/platform"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

// Manager owns the bus connection and the backend for one wireless interface.
type Manager struct {
	iface   string
	conn    *dbus.Conn
	backend p2p.Backend

	cfg config.Configuration
	log config.Logger

	initialized atomic.Bool
	done        chan struct{}
}

// bootstrap holds the functions used to connect to the daemon.
type bootstrap struct {
	checkInterface func(name string) error
	dial           func() (*dbus.Conn, error)
	newBackend     func(conn *dbus.Conn, name string, log config.Logger) (p2p.Backend, error)
}

var systemBootstrap = bootstrap{
	checkInterface: platform.ValidateInterface,
	dial:           dialSystemBus,
	newBackend:     platform.NewBackend,
}

// New validates the interface name, connects to the system bus and
// binds a backend to the interface.
func New(interfaceName string, cfg config.Configuration) (*Manager, error) {
	return newManager(interfaceName, cfg, systemBootstrap)
}

func newManager(interfaceName string, cfg config.Configuration, b bootstrap) (*Manager, error) {
	if err := p2p.ValidateInterfaceName(interfaceName); err != nil {
		return nil, err
	}

	cfg = cfg.Normalize()
	log := withInterface(cfg.Logger, interfaceName)

	if cfg.CheckNetworkManager {
		if err := b.checkInterface(interfaceName); err != nil {
			return nil, err
		}
	}

	conn, err := b.dial()
	if err != nil {
		return nil, err
	}

	backend, err := b.newBackend(conn, interfaceName, log)
	if err != nil {
		if conn != nil {
			conn.Close()
		}

		return nil, err
	}

	log.Debugf("Backend bound to interface")

	return &Manager{
		iface:   interfaceName,
		conn:    conn,
		backend: backend,
		cfg:     cfg,
		log:     log,
		done:    make(chan struct{}),
	}, nil
}

// Initialize starts the worker and returns the first handle to it.
// A Manager can be initialized once; further calls return errorkinds.ErrAlreadyInitialized.
func (m *Manager) Initialize() (*Channel, error) {
	if !m.initialized.CompareAndSwap(false, true) {
		return nil, fault.Wrap(errorkinds.ErrAlreadyInitialized,
			ftag.With(ftag.AlreadyExists),
			fmsg.With("Manager for '"+m.iface+"' is already initialized"),
		)
	}

	queue := newCommandQueue(m.cfg.CommandQueueSize)
	bus := eventbus.New(m.cfg.EventCapacity)

	w := &worker{
		backend: m.backend,
		queue:   queue,
		bus:     bus,
		log:     m.log,
		done:    m.done,
	}
	go w.run()

	return newChannel(queue, bus), nil
}

// Interface returns the name of the wireless interface.
func (m *Manager) Interface() string {
	return m.iface
}

// Connection returns the bus connection.
func (m *Manager) Connection() *dbus.Conn {
	return m.conn
}

// Done returns a channel that is closed when the worker stops.
// It is never closed if the Manager was not initialized.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close closes the bus connection. A running worker fails its queued commands and stops.
func (m *Manager) Close() error {
	if m.conn == nil {
		return nil
	}

	return m.conn.Close()
}

func dialSystemBus() (*dbus.Conn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errorkinds.Transport(err, "dial", "Cannot connect to the system bus")
	}

	return conn, nil
}

func withInterface(log config.Logger, name string) config.Logger {
	switch l := log.(type) {
	case *logrus.Logger:
		return l.WithField("interface", name)

	case *logrus.Entry:
		return l.WithField("interface", name)
	}

	return log
}
