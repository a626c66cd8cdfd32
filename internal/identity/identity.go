// Package identity maps route numbers to the BLE device names buses advertise.
package identity

import "strings"

// Codec converts between a route number and an advertised device name.
// A bus serving route 721 advertises Prefix+"721".
type Codec struct {
	Prefix string
}

// New creates a codec for the given device-name prefix
func New(prefix string) Codec {
	return Codec{Prefix: prefix}
}

// DeviceName returns the advertised name for a route number
func (c Codec) DeviceName(route string) string {
	return c.Prefix + route
}

// RouteNumber extracts the route number from an advertised name.
// It reports false when the name does not carry the prefix.
func (c Codec) RouteNumber(deviceName string) (string, bool) {
	if !strings.HasPrefix(deviceName, c.Prefix) {
		return "", false
	}
	return deviceName[len(c.Prefix):], true
}
