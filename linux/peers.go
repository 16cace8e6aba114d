//go:build linux

package linux

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/api/p2p"
	"github.com/godbus/dbus/v5"
	"github.com/puzpuzpuz/xsync/v3"
)

// peersPathElement is the object path element under which wpa_supplicant exports peers.
const peersPathElement = "Peers"

// peerTable holds the peers that were reported during discovery.
type peerTable struct {
	byPath    *xsync.MapOf[dbus.ObjectPath, p2p.Device]
	byAddress *xsync.MapOf[p2p.MacAddress, dbus.ObjectPath]
}

func newPeerTable() *peerTable {
	return &peerTable{
		byPath:    xsync.NewMapOf[dbus.ObjectPath, p2p.Device](),
		byAddress: xsync.NewMapOf[p2p.MacAddress, dbus.ObjectPath](),
	}
}

func (p *peerTable) store(path dbus.ObjectPath, device p2p.Device) {
	p.byPath.Store(path, device)
	p.byAddress.Store(device.Address, path)
}

func (p *peerTable) remove(path dbus.ObjectPath) {
	device, ok := p.byPath.LoadAndDelete(path)
	if !ok {
		return
	}

	p.byAddress.Compute(device.Address, func(current dbus.ObjectPath, loaded bool) (dbus.ObjectPath, bool) {
		return current, !loaded || current == path
	})
}

func (p *peerTable) pathOf(address p2p.MacAddress) (dbus.ObjectPath, bool) {
	return p.byAddress.Load(address)
}

func (p *peerTable) addressOf(path dbus.ObjectPath) (p2p.MacAddress, bool) {
	if device, ok := p.byPath.Load(path); ok {
		return device.Address, true
	}

	return peerAddressFromPath(path)
}

func (p *peerTable) devices() []p2p.Device {
	devices := make([]p2p.Device, 0, p.byPath.Size())
	p.byPath.Range(func(_ dbus.ObjectPath, device p2p.Device) bool {
		devices = append(devices, device)
		return true
	})

	return devices
}

// peerPath returns the object path wpa_supplicant uses for the peer at address,
// for example "/fi/w1/wpa_supplicant1/Interfaces/1/Peers/021122334455".
func peerPath(iface dbus.ObjectPath, address p2p.MacAddress) dbus.ObjectPath {
	return dbus.ObjectPath(string(iface) + "/" + peersPathElement + "/" + hex.EncodeToString(address[:]))
}

// peerAddressFromPath extracts the peer address from a peer object path.
func peerAddressFromPath(p dbus.ObjectPath) (p2p.MacAddress, bool) {
	dir, file := path.Split(string(p))
	if path.Base(strings.TrimSuffix(dir, "/")) != peersPathElement {
		return p2p.MacAddress{}, false
	}

	raw, err := hex.DecodeString(file)
	if err != nil {
		return p2p.MacAddress{}, false
	}

	return p2p.MacAddressFromBytes(raw)
}

// decodePeer builds a device from the properties of a wpa_supplicant peer object.
func decodePeer(props map[string]dbus.Variant) (p2p.Device, error) {
	var device p2p.Device

	variant, ok := props["DeviceAddress"]
	if !ok {
		return device, errorkinds.Decode(nil, "decode-peer", "Peer has no device address")
	}

	raw, ok := variant.Value().([]byte)
	if !ok {
		return device, errorkinds.Decode(nil, "decode-peer", "Peer device address is not a byte array")
	}

	device.Address, ok = p2p.MacAddressFromBytes(raw)
	if !ok {
		return device, errorkinds.Decode(nil, "decode-peer", "Peer device address has an invalid length")
	}

	if variant, ok := props["DeviceName"]; ok {
		device.Name, _ = variant.Value().(string)
	}

	if variant, ok := props["PrimaryDeviceType"]; ok {
		if raw, ok := variant.Value().([]byte); ok {
			device.PrimaryType = primaryDeviceType(raw)
		}
	}

	return device, nil
}

// primaryDeviceType formats a WPS primary device type as "<category>-<OUI>-<subcategory>".
func primaryDeviceType(raw []byte) string {
	if len(raw) != 8 {
		return ""
	}

	return fmt.Sprintf("%d-%08X-%d",
		binary.BigEndian.Uint16(raw[0:2]),
		binary.BigEndian.Uint32(raw[2:6]),
		binary.BigEndian.Uint16(raw[6:8]),
	)
}
