package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bluetuith-org/wifi-p2p/api/config"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const testTimeout = 5 * time.Second

// fakeBackend records the calls it receives. If gate is set, every call
// waits until the gate is closed or the call's context is cancelled.
type fakeBackend struct {
	calls     []string
	addresses []p2p.MacAddress
	errs      map[string]error

	gate    chan struct{}
	started chan string

	mu sync.Mutex
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		errs:    make(map[string]error),
		started: make(chan string, 128),
	}
}

func (f *fakeBackend) DiscoverPeers(ctx context.Context) error {
	return f.do(ctx, "discover", p2p.MacAddress{})
}

func (f *fakeBackend) StopDiscovery(ctx context.Context) error {
	return f.do(ctx, "stop-discovery", p2p.MacAddress{})
}

func (f *fakeBackend) Connect(ctx context.Context, address p2p.MacAddress) error {
	return f.do(ctx, "connect", address)
}

func (f *fakeBackend) CreateGroup(ctx context.Context) error {
	return f.do(ctx, "create-group", p2p.MacAddress{})
}

func (f *fakeBackend) do(ctx context.Context, name string, address p2p.MacAddress) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	if name == "connect" {
		f.addresses = append(f.addresses, address)
	}
	err := f.errs[name]
	gate := f.gate
	f.mu.Unlock()

	select {
	case f.started <- name:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

func (f *fakeBackend) recorded() ([]string, []p2p.MacAddress) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...), append([]p2p.MacAddress(nil), f.addresses...)
}

// listeningBackend is a fakeBackend that also produces events,
// and fails with the error sent on fail.
type listeningBackend struct {
	*fakeBackend

	events chan p2p.Event
	fail   chan error
}

func newListeningBackend() *listeningBackend {
	return &listeningBackend{
		fakeBackend: newFakeBackend(),
		events:      make(chan p2p.Event),
		fail:        make(chan error, 1),
	}
}

func (l *listeningBackend) Listen(ctx context.Context, emit func(p2p.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-l.events:
			emit(ev)
		case err := <-l.fail:
			return err
		}
	}
}

func testBootstrap(backend p2p.Backend) bootstrap {
	return bootstrap{
		checkInterface: func(string) error { return nil },
		dial:           func() (*dbus.Conn, error) { return nil, nil },
		newBackend: func(*dbus.Conn, string, config.Logger) (p2p.Backend, error) {
			return backend, nil
		},
	}
}

func testConfig(t *testing.T) (config.Configuration, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.New()
	cfg.Logger = logger

	return cfg, hook
}

// startManager returns an initialized manager bound to backend.
func startManager(t *testing.T, backend p2p.Backend) (*Manager, *Channel) {
	t.Helper()

	cfg, _ := testConfig(t)

	m, err := newManager("wlan0", cfg, testBootstrap(backend))
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}

	ch, err := m.Initialize()
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	return m, ch
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)

	return ctx
}

func waitStarted(t *testing.T, f *fakeBackend, name string) {
	t.Helper()

	select {
	case got := <-f.started:
		if got != name {
			t.Fatalf("expected %s call to start, got %s", name, got)
		}
	case <-time.After(testTimeout):
		t.Fatalf("%s call did not start", name)
	}
}
