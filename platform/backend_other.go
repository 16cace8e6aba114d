//go:build !linux

package platform

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/wifi-p2p/api/config"
	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/godbus/dbus/v5"
)

// NewBackend returns a platform-specific backend bound to the interface.
func NewBackend(*dbus.Conn, string, config.Logger) (p2p.Backend, error) {
	return nil, fault.Wrap(errorkinds.ErrNotSupported,
		ftag.With(ftag.Internal),
		fmsg.With("No P2P backend is available for this platform"),
	)
}

// ValidateInterface does not do anything.
func ValidateInterface(string) error {
	return nil
}

// Info returns information about the platform's P2P stack.
func Info() PlatformInfo {
	return NewPlatformInfo(UnsupportedStack)
}
