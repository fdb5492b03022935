// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

// Package identifier classifies vSphere device names and matches them against
// FlashArray volume serials.
package identifier

import (
	"fmt"
	"strings"
)

const (
	// PureVendorCode is the vendor OUI embedded in NAA and EUI device names of array volumes
	PureVendorCode = "24a937"

	naaPrefix = "naa"
	euiPrefix = "eui"

	// Offsets of the vendor code within each device name format
	naaVendorStart = 5
	euiVendorStart = 20

	// Offsets at which the volume serial begins within each device name format
	naaSerialStart = 12
	euiSerialStart = 6

	// Index of the device name when a device path is split on "/"
	// ("", "vmfs", "devices", "disks", <device>)
	devicePathNameSegment = 4
)

// Kind of a device identifier
type Kind int

const (
	Unknown Kind = iota
	NAA
	EUI
)

func (k Kind) String() string {
	switch k {
	case NAA:
		return naaPrefix
	case EUI:
		return euiPrefix
	default:
		return "unknown"
	}
}

// DeviceIdentifier is a classified device name
type DeviceIdentifier struct {
	Kind  Kind
	Value string // lowercase
}

// Classify returns the identifier kind based on the name prefix
func Classify(raw string) DeviceIdentifier {
	kind := Unknown
	switch {
	case strings.HasPrefix(raw, naaPrefix):
		kind = NAA
	case strings.HasPrefix(raw, euiPrefix):
		kind = EUI
	}
	return DeviceIdentifier{Kind: kind, Value: strings.ToLower(raw)}
}

// IsPureDevice returns true if the device name carries the array vendor code at the fixed
// offset of its format.  Names that are too short or have another prefix return false.
func IsPureDevice(raw string) bool {
	switch Classify(raw).Kind {
	case NAA:
		return vendorCodeAt(raw, naaVendorStart)
	case EUI:
		return vendorCodeAt(raw, euiVendorStart)
	default:
		return false
	}
}

func vendorCodeAt(raw string, start int) bool {
	end := start + len(PureVendorCode)
	if len(raw) < end {
		return false
	}
	return raw[start:end] == PureVendorCode
}

// FindDevicePath returns the first device path whose device name embeds the given volume
// serial.  The comparison is case-insensitive.  The second return value is false when no
// path matches.
func FindDevicePath(devicePaths []string, serial string) (string, bool) {
	serial = strings.ToLower(serial)
	for _, path := range devicePaths {
		segments := strings.Split(path, "/")
		if len(segments) <= devicePathNameSegment {
			continue
		}
		if serialFromDeviceName(segments[devicePathNameSegment]) == serial && serial != "" {
			return path, true
		}
	}
	return "", false
}

// serialFromDeviceName extracts the volume serial embedded in an array device name.  An
// empty string is returned for names that cannot carry a serial.
func serialFromDeviceName(name string) string {
	name = strings.ToLower(name)
	switch Classify(name).Kind {
	case NAA:
		if len(name) <= naaSerialStart {
			return ""
		}
		return name[naaSerialStart:]
	case EUI:
		if len(name) <= euiSerialStart {
			return ""
		}
		return strings.Replace(name[euiSerialStart:], PureVendorCode, "", -1)
	default:
		return ""
	}
}

// FormatWWPN renders a Fibre Channel port world wide name as lowercase hex without the 0x
// prefix.  vSphere reports WWPNs as signed 64 bit values so the bits are reinterpreted as
// unsigned.
func FormatWWPN(wwpn int64) string {
	return fmt.Sprintf("%x", uint64(wwpn))
}
