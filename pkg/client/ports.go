package client

import (
	"strings"

	"go.bug.st/serial/enumerator"
)

// Filter selects USB serial ports. Empty fields match anything.
type Filter struct {
	// VID and PID are hexadecimal USB IDs, e.g. "0403".
	VID string
	PID string
	// SerialSuffix matches the end of the USB serial number, which tells
	// apart identical adapters.
	SerialSuffix string
}

// IsEmpty tells whether the filter matches any port.
func (f Filter) IsEmpty() bool {
	return f.VID == "" && f.PID == "" && f.SerialSuffix == ""
}

// Match tells whether port passes the filter.
func (f Filter) Match(port *enumerator.PortDetails) bool {
	if f.IsEmpty() {
		return true
	}
	if !port.IsUSB {
		return false
	}
	if f.VID != "" && !strings.EqualFold(trimHex(f.VID), trimHex(port.VID)) {
		return false
	}
	if f.PID != "" && !strings.EqualFold(trimHex(f.PID), trimHex(port.PID)) {
		return false
	}
	return strings.HasSuffix(port.SerialNumber, f.SerialSuffix)
}

func trimHex(s string) string {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed := strings.TrimLeft(s, "0"); trimmed != "" {
		return trimmed
	}
	return "0"
}

// FilterPorts returns the names of ports passing the filter.
func FilterPorts(ports []*enumerator.PortDetails, f Filter) []string {
	var names []string
	for _, port := range ports {
		if f.Match(port) {
			names = append(names, port.Name)
		}
	}
	return names
}

// FindPorts enumerates serial ports passing the filter.
func FindPorts(f Filter) ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	return FilterPorts(ports, f), nil
}
