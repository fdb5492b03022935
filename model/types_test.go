// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var containerTests = []struct {
	name     string
	arrayIDs []string
	arrayID  string
	result   bool
}{
	{"matching id", []string{"com.purestorage:a1b2"}, "a1b2", true},
	{"second id matches", []string{"com.purestorage:zzzz", "com.purestorage:a1b2"}, "a1b2", true},
	{"different array", []string{"com.purestorage:zzzz"}, "a1b2", false},
	{"no separator", []string{"a1b2"}, "a1b2", false},
	{"no ids", nil, "a1b2", false},
}

func TestBackedByArray(t *testing.T) {
	for _, tc := range containerTests {
		t.Run(tc.name, func(t *testing.T) {
			c := &StorageContainer{ArrayIDs: tc.arrayIDs}
			assert.Equal(t, tc.result, c.BackedByArray(tc.arrayID))
		})
	}
}

func TestConnectedHosts(t *testing.T) {
	c := &Cluster{Hosts: []*VirtualizationHost{
		{Name: "esx1", ConnectionState: "connected"},
		{Name: "esx2", ConnectionState: "disconnected"},
		{Name: "esx3", ConnectionState: "connected"},
		{Name: "esx4", ConnectionState: "notResponding"},
	}}
	hosts := c.ConnectedHosts()
	assert.Len(t, hosts, 2)
	assert.Equal(t, "esx1", hosts[0].Name)
	assert.Equal(t, "esx3", hosts[1].Name)
}

func TestNetworkInterface(t *testing.T) {
	n := &NetworkInterface{Name: "ct1.eth4"}
	assert.False(t, n.IsVirtual())
	assert.Equal(t, "ct1", n.Controller())

	v := &NetworkInterface{Name: "vir0"}
	assert.True(t, v.IsVirtual())
	assert.Equal(t, "vir0", v.Controller())
}

func TestBackingType(t *testing.T) {
	var b DatastoreBacking = VmfsBacking{}
	assert.Equal(t, DatastoreTypeVMFS, b.Type())
	b = VvolBacking{}
	assert.Equal(t, DatastoreTypeVVOL, b.Type())
	assert.True(t, TaskStateError.IsTerminal())
	assert.False(t, TaskStateRunning.IsTerminal())
}
