package model

import (
	"time"
)

// DeviceType classifies who or what a device belongs to.
type DeviceType string

const (
	DeviceTypeEmployee  DeviceType = "employee"
	DeviceTypeVisitor   DeviceType = "visitor"
	DeviceTypeEquipment DeviceType = "equipment"
	DeviceTypeOther     DeviceType = "other"
)

// ValidDeviceType reports whether t is one of the known device types.
func ValidDeviceType(t DeviceType) bool {
	switch t {
	case DeviceTypeEmployee, DeviceTypeVisitor, DeviceTypeEquipment, DeviceTypeOther:
		return true
	}
	return false
}

// Device is one tracked host, keyed by IP for the lifetime of the registry.
// MAC and hostname are best-effort and may be absent; a device whose IP
// changes is treated as a brand-new device.
type Device struct {
	IP         string     `json:"ip"`
	MAC        string     `json:"mac,omitempty"`
	Hostname   string     `json:"hostname,omitempty"`
	Vendor     string     `json:"vendor,omitempty"`
	CustomName string     `json:"custom_name,omitempty"`
	DeviceType DeviceType `json:"device_type"`
	Monitored  bool       `json:"monitored"`
	Online     bool       `json:"online"`
	FirstSeen  time.Time  `json:"first_seen"`
	LastSeen   time.Time  `json:"last_seen,omitempty"`

	// Distance state, populated only while distance mode is active.
	// RSSI 0 means no estimate; EstimatedDistance nil means undefined.
	RSSI              int      `json:"rssi,omitempty"`
	EstimatedDistance *float64 `json:"estimated_distance,omitempty"`
}

// DisplayName returns the name used in alerts: the user-assigned name,
// falling back to the resolved hostname, then "Unknown".
func (d *Device) DisplayName() string {
	if d.CustomName != "" {
		return d.CustomName
	}
	if d.Hostname != "" {
		return d.Hostname
	}
	return "Unknown"
}

// Label is like DisplayName but falls back to the IP, for log and
// alert-message text where an address is more useful than "Unknown".
func (d *Device) Label() string {
	if d.CustomName != "" {
		return d.CustomName
	}
	if d.Hostname != "" {
		return d.Hostname
	}
	return d.IP
}
