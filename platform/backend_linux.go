//go:build linux

package platform

import (
	"github.com/bluetuith-org/wifi-p2p/api/config"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/bluetuith-org/wifi-p2p/linux"
	"github.com/godbus/dbus/v5"
)

// NewBackend returns a platform-specific backend bound to the interface.
func NewBackend(conn *dbus.Conn, interfaceName string, log config.Logger) (p2p.Backend, error) {
	backend, err := linux.NewBackend(conn, interfaceName, log)
	if err != nil {
		return nil, err
	}

	return backend, nil
}

// ValidateInterface checks with the platform's network service that the interface is a Wi-Fi device.
func ValidateInterface(interfaceName string) error {
	return linux.CheckNetworkManager(interfaceName)
}

// Info returns information about the platform's P2P stack.
func Info() PlatformInfo {
	return NewPlatformInfo(WpaSupplicantStack)
}
