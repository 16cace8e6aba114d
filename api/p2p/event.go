package p2p

import (
	"github.com/bluetuith-org/wifi-p2p/api/errorkinds"
	"github.com/bluetuith-org/wifi-p2p/internal/serde"
)

// EventKind identifies the kind of an Event.
type EventKind uint8

const (
	EventNone EventKind = iota
	DiscoveryStarted
	DiscoveryStopped
	GroupCreated
	Connected
	PeerFound
)

var eventNames = [...]string{
	EventNone:        "none",
	DiscoveryStarted: "discovery-started",
	DiscoveryStopped: "discovery-stopped",
	GroupCreated:     "group-created",
	Connected:        "connected",
	PeerFound:        "peer-found",
}

// String returns the name of the event kind.
func (k EventKind) String() string {
	if int(k) >= len(eventNames) {
		return eventNames[EventNone]
	}

	return eventNames[k]
}

// Event describes a notification that originated from the daemon.
// Address is set for Connected events, and Device for PeerFound events.
type Event struct {
	Kind    EventKind
	Address MacAddress
	Device  Device
}

// DiscoveryStartedEvent returns an event reporting an active discovery scan.
func DiscoveryStartedEvent() Event {
	return Event{Kind: DiscoveryStarted}
}

// DiscoveryStoppedEvent returns an event reporting the end of a discovery scan.
func DiscoveryStoppedEvent() Event {
	return Event{Kind: DiscoveryStopped}
}

// GroupCreatedEvent returns an event reporting a formed P2P group.
func GroupCreatedEvent() Event {
	return Event{Kind: GroupCreated}
}

// ConnectedEvent returns an event reporting an established link to address.
func ConnectedEvent(address MacAddress) Event {
	return Event{Kind: Connected, Address: address}
}

// PeerFoundEvent returns an event reporting a discovered peer.
func PeerFoundEvent(device Device) Event {
	return Event{Kind: PeerFound, Address: device.Address, Device: device}
}

// eventRecord is the JSON form of an Event.
type eventRecord struct {
	Kind        string `json:"event"`
	Address     string `json:"address,omitempty"`
	Name        string `json:"name,omitempty"`
	PrimaryType string `json:"primary_type,omitempty"`
}

// MarshalJSON encodes the event.
func (e Event) MarshalJSON() ([]byte, error) {
	record := eventRecord{Kind: e.Kind.String()}

	switch e.Kind {
	case Connected:
		record.Address = e.Address.String()

	case PeerFound:
		record.Address = e.Device.Address.String()
		record.Name = e.Device.Name
		record.PrimaryType = e.Device.PrimaryType
	}

	return serde.MarshalJson(record)
}

// UnmarshalJSON decodes an event encoded with MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var record eventRecord
	if err := serde.UnmarshalJson(data, &record); err != nil {
		return errorkinds.Decode(err, "event-json", "Cannot decode event")
	}

	kind := EventNone
	for k, name := range eventNames {
		if name == record.Kind {
			kind = EventKind(k)
			break
		}
	}
	if kind == EventNone {
		return errorkinds.Decode(nil, "event-json", "Unknown event '"+record.Kind+"'")
	}

	ev := Event{Kind: kind}
	if kind == Connected || kind == PeerFound {
		address, err := ParseMacAddress(record.Address)
		if err != nil {
			return errorkinds.Decode(err, "event-json", "Event carries an invalid address")
		}

		ev.Address = address
		if kind == PeerFound {
			ev.Device = Device{Address: address, Name: record.Name, PrimaryType: record.PrimaryType}
		}
	}

	*e = ev

	return nil
}
