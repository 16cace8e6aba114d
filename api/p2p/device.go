package p2p

import (
	"net"
	"strings"

	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
)

// MacAddress holds a six-byte hardware address.
type MacAddress [6]byte

// ParseMacAddress parses a colon or hyphen separated hardware address,
// for example "aa:bb:cc:dd:ee:ff".
func ParseMacAddress(address string) (MacAddress, error) {
	var mac MacAddress

	hw, err := net.ParseMAC(strings.TrimSpace(address))
	if err != nil || len(hw) != len(mac) {
		return mac, errorkinds.InvalidAddress(address, "Cannot parse device address")
	}

	copy(mac[:], hw)

	return mac, nil
}

// MacAddressFromBytes converts a raw address reported by the daemon.
func MacAddressFromBytes(b []byte) (MacAddress, bool) {
	var mac MacAddress
	if len(b) != len(mac) {
		return mac, false
	}

	copy(mac[:], b)

	return mac, true
}

// String returns the canonical lower-case, colon separated form of the address.
func (m MacAddress) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IsZero reports whether the address is unset.
func (m MacAddress) IsZero() bool {
	return m == MacAddress{}
}

// Device describes a peer reported by the daemon during discovery.
// It is a snapshot; two devices with the same Address are the same peer.
type Device struct {
	// Address holds the P2P device address of the peer.
	Address MacAddress

	// Name holds the peer's device name, or is empty if the daemon did not supply one.
	Name string

	// PrimaryType holds the WPS primary device type, for example "1-0050F204-1".
	PrimaryType string
}

// HasName reports whether the daemon supplied a device name.
func (d Device) HasName() bool {
	return d.Name != ""
}
