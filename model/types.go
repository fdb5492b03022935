// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

package model

import (
	"strings"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// This model package defines the objects passed between the FlashArray client, the vSphere
// client, the storage monitoring service client and the provisioning workflows.
//
// SNAPSHOTS
//
//		Every object here is a read-only snapshot fetched for the duration of one workflow.
//		Nothing is cached between calls; each workflow re-fetches from both backends.
//
// VARIANTS
//
//		Host adapters and datastore backings are closed variants.  They are decided once when
//		the vSphere client converts its managed objects and are never re-inspected downstream.
//
///////////////////////////////////////////////////////////////////////////////////////////////////

///////////////////////////////////////////////////////////////////////////////////////////////////
// FlashArray Objects
///////////////////////////////////////////////////////////////////////////////////////////////////

// ArrayHost : host object as configured on the array
type ArrayHost struct {
	Name      string   `json:"name"`             // Array host name
	WWNs      []string `json:"wwn,omitempty"`    // Fibre Channel port names, hex without separators
	IQNs      []string `json:"iqn,omitempty"`    // iSCSI qualified names
	HostGroup string   `json:"hgroup,omitempty"` // Owning host group, empty if ungrouped
}

// ArrayHostGroup : named aggregate of array hosts
type ArrayHostGroup struct {
	Name  string   `json:"name"`
	Hosts []string `json:"hosts,omitempty"`
}

// ArrayVolume : volume record returned by the array
type ArrayVolume struct {
	Name    string `json:"name"`
	Serial  string `json:"serial,omitempty"`  // 24 hex digit volume serial
	Size    uint64 `json:"size,omitempty"`    // Provisioned size in bytes
	Created string `json:"created,omitempty"` // Creation timestamp
	Source  string `json:"source,omitempty"`  // Source volume for copies
}

// ArrayInfo : array identity record
type ArrayInfo struct {
	ID        string `json:"id"`
	ArrayName string `json:"array_name"`
	Version   string `json:"version,omitempty"`
	Revision  string `json:"revision,omitempty"`
}

// NetworkInterface : array network interface
type NetworkInterface struct {
	Name     string   `json:"name"`              // e.g. "ct0.eth0" or "vir0"
	Address  string   `json:"address,omitempty"` // IPv4 address
	Netmask  string   `json:"netmask,omitempty"`
	Gateway  string   `json:"gateway,omitempty"`
	Enabled  bool     `json:"enabled"`
	Services []string `json:"services,omitempty"`
}

// IsVirtual returns true for floating interfaces that do not belong to a single controller
func (n *NetworkInterface) IsVirtual() bool {
	return strings.Contains(n.Name, "vir")
}

// Controller returns the controller prefix of the interface name (e.g. "ct0" for "ct0.eth0")
func (n *NetworkInterface) Controller() string {
	return strings.SplitN(n.Name, ".", 2)[0]
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// vSphere Host Objects
///////////////////////////////////////////////////////////////////////////////////////////////////

// AdapterKind is the closed set of host bus adapter variants
type AdapterKind int

const (
	AdapterOther AdapterKind = iota
	AdapterFibreChannel
	AdapterISCSI
)

func (k AdapterKind) String() string {
	switch k {
	case AdapterFibreChannel:
		return "FibreChannel"
	case AdapterISCSI:
		return "iSCSI"
	default:
		return "Other"
	}
}

// HostAdapter : host bus adapter of a vSphere host
type HostAdapter struct {
	Device            string      // e.g. "vmhba2"
	Kind              AdapterKind //
	PortWorldWideName int64       // Set for FibreChannel adapters
	IScsiName         string      // Set for iSCSI adapters
}

// HostConnectionStateConnected is the only runtime state a host can be provisioned in
const HostConnectionStateConnected = "connected"

// VirtualizationHost : vSphere host system
type VirtualizationHost struct {
	Name            string
	Ref             string // Managed object id, e.g. "host-21"
	ConnectionState string
	Adapters        []HostAdapter
}

func (h *VirtualizationHost) IsConnected() bool {
	return h.ConnectionState == HostConnectionStateConnected
}

// Cluster : vSphere compute cluster
type Cluster struct {
	Name  string
	Ref   string
	Hosts []*VirtualizationHost
}

// ConnectedHosts returns the hosts whose runtime connection state is connected, in
// inventory order.
func (c *Cluster) ConnectedHosts() []*VirtualizationHost {
	var hosts []*VirtualizationHost
	for _, h := range c.Hosts {
		if h.IsConnected() {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Datastore Objects
///////////////////////////////////////////////////////////////////////////////////////////////////

// DatastoreType is the filesystem type reported for a datastore
type DatastoreType string

const (
	DatastoreTypeVMFS DatastoreType = "VMFS"
	DatastoreTypeVVOL DatastoreType = "VVOL"
)

// DatastoreBacking is implemented only by VmfsBacking and VvolBacking
type DatastoreBacking interface {
	Type() DatastoreType
	isBacking()
}

// VmfsBacking : block datastore extents
type VmfsBacking struct {
	Extents []string // Extent disk names, e.g. "naa.624a9370..."
}

func (VmfsBacking) Type() DatastoreType { return DatastoreTypeVMFS }
func (VmfsBacking) isBacking()          {}

// HostProtocolEndpoint : protocol endpoints one host reports for a vVol datastore
type HostProtocolEndpoint struct {
	HostRef   string
	DeviceIDs []string
}

// VvolBacking : container datastore protocol endpoints
type VvolBacking struct {
	HostProtocolEndpoints []HostProtocolEndpoint
}

func (VvolBacking) Type() DatastoreType { return DatastoreTypeVVOL }
func (VvolBacking) isBacking()          {}

// Datastore : vSphere datastore.  Backing is nil for datastore types other than VMFS and VVOL.
type Datastore struct {
	Name      string
	Ref       string
	URL       string
	Capacity  int64
	FreeSpace int64
	Backing   DatastoreBacking
}

// ScsiDisk : block device visible to a host
type ScsiDisk struct {
	CanonicalName string // e.g. "naa.624a9370..."
	DevicePath    string // e.g. "/vmfs/devices/disks/naa.624a9370..."
	DisplayName   string
	Capacity      int64 // bytes
}

// VmfsDatastoreOption : one VMFS creation option for a device.  Native carries the
// backend's own create spec and is only interpreted by the client that produced it.
type VmfsDatastoreOption struct {
	DevicePath   string
	VolumeName   string
	MajorVersion int32 // 0 keeps the backend default
	Native       interface{}
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Storage Monitoring Service Objects
///////////////////////////////////////////////////////////////////////////////////////////////////

// StorageContainer : vVol storage container published by a VASA provider
type StorageContainer struct {
	UUID        string
	Name        string
	ArrayIDs    []string // e.g. "com.purestorage:2f1b8f8e-..."
	ProviderIDs []string
}

// BackedByArray returns true if any array id of the container refers to the given array
func (s *StorageContainer) BackedByArray(arrayID string) bool {
	for _, id := range s.ArrayIDs {
		parts := strings.SplitN(id, ":", 2)
		if len(parts) == 2 && parts[1] == arrayID {
			return true
		}
	}
	return false
}

// StorageProvider : registered VASA provider
type StorageProvider struct {
	Ref     string
	UID     string
	Name    string
	URL     string
	Version string
}

// StorageProviderSpec : VASA provider registration request
type StorageProviderSpec struct {
	Name        string
	Description string
	URL         string
	Username    string
	Password    string
}

// TaskState of an asynchronous backend operation
type TaskState string

const (
	TaskStateQueued  TaskState = "queued"
	TaskStateRunning TaskState = "running"
	TaskStateSuccess TaskState = "success"
	TaskStateError   TaskState = "error"
)

// IsTerminal returns true for success and error
func (s TaskState) IsTerminal() bool {
	return s == TaskStateSuccess || s == TaskStateError
}

// TaskInfo : status snapshot of an asynchronous backend operation
type TaskInfo struct {
	Key    string
	State  TaskState
	Error  string      // Backend reported cause when State is error
	Result interface{} // Backend specific result when State is success
}
