package p2p

import (
	"context"
	"strings"
	"unicode"

	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
)

// MaxInterfaceNameLength is the longest interface name the kernel accepts.
const MaxInterfaceNameLength = 15

// Backend describes the requests that can be made to the daemon.
//
// Every call returns as soon as the daemon accepts or rejects the request.
// The effect of an accepted request is reported later as an Event.
type Backend interface {
	// DiscoverPeers starts a peer discovery scan.
	DiscoverPeers(ctx context.Context) error

	// StopDiscovery cancels a peer discovery scan. It succeeds even if no scan is running.
	StopDiscovery(ctx context.Context) error

	// Connect starts associating with the peer at the provided address.
	Connect(ctx context.Context, address MacAddress) error

	// CreateGroup requests the formation of a P2P group.
	CreateGroup(ctx context.Context) error
}

// SignalSource is implemented by backends that translate daemon signals into events.
type SignalSource interface {
	// Listen calls emit once for each translated signal, in the order the signals arrived.
	// It returns nil when ctx is cancelled, and an error when the bus connection fails.
	Listen(ctx context.Context, emit func(Event)) error
}

// ValidateInterfaceName checks that name is usable as a network interface name.
func ValidateInterfaceName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errorkinds.InvalidInterface(name, "Interface name is empty")

	case len(name) > MaxInterfaceNameLength:
		return errorkinds.InvalidInterface(name, "Interface name is too long")

	case name == "." || name == "..":
		return errorkinds.InvalidInterface(name, "Interface name is reserved")

	case strings.ContainsFunc(name, func(r rune) bool { return r == '/' || r == ':' || unicode.IsSpace(r) || !unicode.IsPrint(r) }):
		return errorkinds.InvalidInterface(name, "Interface name contains invalid characters")
	}

	return nil
}
