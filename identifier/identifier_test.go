// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var pureDeviceTests = []struct {
	name   string
	input  string
	result bool
}{
	{"naa array volume", "naa.624a93703b7b308d98f9425e000113e9", true},
	{"naa other vendor", "naa.0000000000000000000000000000000", false},
	{"naa vendor code wrong offset", "naa.6624a9373b7b308d98f9425e000113e9", false},
	{"naa too short", "naa.624a9", false},
	{"naa exactly vendor length", "naa.624a937", true},
	{"eui array volume", "eui.003b7b308d98f94224a9375e00018816", true},
	{"eui other vendor", "eui.003b7b308d98f942000000005e00018816", false},
	{"eui too short", "eui.003b7b308d98f94224a93", false},
	{"mpx local disk", "mpx.vmhba32:C0:T0:L0", false},
	{"t10 identifier", "t10.ATA_____24a937", false},
	{"empty", "", false},
	{"upper case prefix", "NAA.624a93703b7b308d98f9425e000113e9", false},
}

func TestIsPureDevice(t *testing.T) {
	for _, tc := range pureDeviceTests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.result, IsPureDevice(tc.input))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, DeviceIdentifier{Kind: NAA, Value: "naa.624a9370abc"}, Classify("naa.624A9370ABC"))
	assert.Equal(t, EUI, Classify("eui.00").Kind)
	assert.Equal(t, Unknown, Classify("mpx.vmhba0:C0:T0:L0").Kind)
	assert.Equal(t, "naa", NAA.String())
}

var devicePathTests = []struct {
	name   string
	paths  []string
	serial string
	path   string
	found  bool
}{
	{
		"naa upper case serial",
		[]string{"/vmfs/devices/disks/naa.624a93703b7b308d98f9425e000113e9"},
		"3B7B308D98F9425E000113E9",
		"/vmfs/devices/disks/naa.624a93703b7b308d98f9425e000113e9",
		true,
	},
	{
		"naa unrelated serial",
		[]string{"/vmfs/devices/disks/naa.624a93703b7b308d98f9425e000113e9"},
		"3B7B308D98F9425E00011111",
		"",
		false,
	},
	{
		"eui serial",
		[]string{"/vmfs/devices/disks/naa.624a93703b7b308d98f9425e000113e9", "/vmfs/devices/disks/eui.003b7b308d98f94224a9375e00018816"},
		"3b7b308d98f9425e00018816",
		"/vmfs/devices/disks/eui.003b7b308d98f94224a9375e00018816",
		true,
	},
	{
		"first match wins",
		[]string{"/vmfs/devices/disks/naa.624a93703b7b308d98f9425e000113e9", "/vmfs/devices/disks/naa.624a93703b7b308d98f9425e000113e9:1"},
		"3b7b308d98f9425e000113e9",
		"/vmfs/devices/disks/naa.624a93703b7b308d98f9425e000113e9",
		true,
	},
	{
		"short path skipped",
		[]string{"/vmfs/devices", "/vmfs/devices/disks/naa.624a93703b7b308d98f9425e000113e9"},
		"3b7b308d98f9425e000113e9",
		"/vmfs/devices/disks/naa.624a93703b7b308d98f9425e000113e9",
		true,
	},
	{
		"local disk ignored",
		[]string{"/vmfs/devices/disks/mpx.vmhba32:C0:T0:L0"},
		"3b7b308d98f9425e000113e9",
		"",
		false,
	},
	{"no paths", nil, "3b7b308d98f9425e000113e9", "", false},
	{"empty serial", []string{"/vmfs/devices/disks/naa.624a9370"}, "", "", false},
}

func TestFindDevicePath(t *testing.T) {
	for _, tc := range devicePathTests {
		t.Run(tc.name, func(t *testing.T) {
			path, found := FindDevicePath(tc.paths, tc.serial)
			assert.Equal(t, tc.found, found)
			assert.Equal(t, tc.path, path)
		})
	}
}

func TestFormatWWPN(t *testing.T) {
	assert.Equal(t, "21000024ff3dd4b2", FormatWWPN(0x21000024ff3dd4b2))
	// High bit set, reported by vSphere as a negative long
	assert.Equal(t, "a1000024ff3dd4b2", FormatWWPN(-0x5effffdb00c22b4e))
}
