package platform

import "runtime"

// P2PStack names the daemon that provides Wi-Fi Direct on a platform.
type P2PStack string

const (
	// WpaSupplicantStack is wpa_supplicant, reached over the system bus.
	WpaSupplicantStack P2PStack = "wpa_supplicant (DBus)"

	// UnsupportedStack is reported where no backend exists. NewBackend fails
	// with errorkinds.ErrNotSupported on such platforms.
	UnsupportedStack P2PStack = "Unsupported"
)

// Supported reports whether a backend exists for the stack.
func (p P2PStack) Supported() bool {
	return p != UnsupportedStack && p != ""
}

// PlatformInfo describes platform-specific information.
type PlatformInfo struct {
	OS    string   `json:"os,omitempty"`
	Stack P2PStack `json:"p2p_stack,omitempty"`
}

// NewPlatformInfo returns a new PlatformInfo.
func NewPlatformInfo(stack P2PStack) PlatformInfo {
	return PlatformInfo{
		OS:    runtime.GOOS + " (" + runtime.GOARCH + ")",
		Stack: stack,
	}
}

// String converts a P2PStack to a string.
func (p P2PStack) String() string {
	return string(p)
}
