//go:build linux

package linux

import (
	"github.com/Wifx/gonetworkmanager"
	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
)

const (
	serviceUnknownError = "org.freedesktop.DBus.Error.ServiceUnknown"
	nameHasNoOwnerError = "org.freedesktop.DBus.Error.NameHasNoOwner"
	unknownDeviceError  = "org.freedesktop.NetworkManager.UnknownDevice"
)

// CheckNetworkManager checks that NetworkManager knows the interface as a Wi-Fi device.
// If NetworkManager is not running, the check is skipped.
func CheckNetworkManager(interfaceName string) error {
	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return networkManagerError(interfaceName, err)
	}

	device, err := nm.GetDeviceByIpIface(interfaceName)
	if err != nil {
		return networkManagerError(interfaceName, err)
	}

	deviceType, err := device.GetPropertyDeviceType()
	if err != nil {
		return networkManagerError(interfaceName, err)
	}

	return checkDeviceType(interfaceName, deviceType)
}

func checkDeviceType(interfaceName string, deviceType gonetworkmanager.NmDeviceType) error {
	if deviceType != gonetworkmanager.NmDeviceTypeWifi {
		return errorkinds.InvalidInterface(interfaceName, "NetworkManager does not report the interface as a Wi-Fi device")
	}

	return nil
}

func networkManagerError(interfaceName string, err error) error {
	name, _, ok := daemonError(err)
	switch {
	case !ok:
		return errorkinds.Transport(err, "network-manager", "Cannot connect to NetworkManager")

	case name == serviceUnknownError, name == nameHasNoOwnerError:
		return nil

	case name == unknownDeviceError:
		return errorkinds.InvalidInterface(interfaceName, "NetworkManager does not know the interface")
	}

	return errorkinds.Transport(err, "network-manager", "Cannot query NetworkManager")
}
