// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

package provisioner

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	"github.com/hpe-storage/vsphere-host-libs/model"
	"github.com/hpe-storage/vsphere-host-libs/task"
)

const (
	testArrayID   = "2f1b8f8e-7a52-4d7b-9a6c-0c6b2f0d7f11"
	testArrayName = "flasharray-m20"
	testCluster   = "cluster-1"
	testHostGroup = "hg-cluster-1"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
// Array
///////////////////////////////////////////////////////////////////////////////////////////////////

type fakeArray struct {
	info        *model.ArrayInfo
	hosts       []*model.ArrayHost
	interfaces  []*model.NetworkInterface
	volumes     []*model.ArrayVolume
	endpoints   []*model.ArrayVolume
	connections map[string][]string
	createErr   error
}

func newFakeArray() *fakeArray {
	return &fakeArray{
		info: &model.ArrayInfo{ID: testArrayID, ArrayName: testArrayName},
		hosts: []*model.ArrayHost{
			{Name: "esx-a", WWNs: []string{"21000024FF3DD4B2"}, HostGroup: testHostGroup},
			{Name: "esx-b", IQNs: []string{"iqn.1998-01.com.vmware:esx-b"}, HostGroup: testHostGroup},
			{Name: "esx-c", WWNs: []string{"21000024ff3dd4c9"}, HostGroup: testHostGroup},
		},
		interfaces: []*model.NetworkInterface{
			{Name: "vir0", Address: "10.21.88.4", Enabled: true},
			{Name: "ct0.eth0", Address: "10.21.88.5", Enabled: true},
			{Name: "ct1.eth0", Address: "10.21.88.6", Enabled: true},
		},
		connections: make(map[string][]string),
	}
}

func (a *fakeArray) Get(ctx context.Context) (*model.ArrayInfo, error) {
	return a.info, nil
}

func (a *fakeArray) ListHosts(ctx context.Context) ([]*model.ArrayHost, error) {
	return a.hosts, nil
}

func (a *fakeArray) ListNetworkInterfaces(ctx context.Context) ([]*model.NetworkInterface, error) {
	return a.interfaces, nil
}

func (a *fakeArray) nextSerial() string {
	return fmt.Sprintf("3B7B308D98F9425E%08X", len(a.volumes)+len(a.endpoints)+0x113E9)
}

func (a *fakeArray) CreateVolume(ctx context.Context, name string, sizeBytes uint64) (*model.ArrayVolume, error) {
	if a.createErr != nil {
		return nil, a.createErr
	}
	v := &model.ArrayVolume{Name: name, Serial: a.nextSerial(), Size: sizeBytes}
	a.volumes = append(a.volumes, v)
	return v, nil
}

func (a *fakeArray) CreateConglomerateVolume(ctx context.Context, name string) (*model.ArrayVolume, error) {
	v := &model.ArrayVolume{Name: name, Serial: a.nextSerial()}
	a.endpoints = append(a.endpoints, v)
	return v, nil
}

func (a *fakeArray) ConnectHostGroup(ctx context.Context, hostGroup, volumeName string) error {
	a.connections[hostGroup] = append(a.connections[hostGroup], volumeName)
	return nil
}

func (a *fakeArray) ListVolumes(ctx context.Context, protocolEndpoint bool) ([]*model.ArrayVolume, error) {
	if protocolEndpoint {
		return a.endpoints, nil
	}
	return a.volumes, nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// vCenter
///////////////////////////////////////////////////////////////////////////////////////////////////

type fakeVsphere struct {
	clusters  []*model.Cluster
	datastore []*model.Datastore
	// serials of the volumes the hosts can see
	serials func() []string

	// hide volumes from hosts
	invisible bool
	// fail every rescan once a datastore exists
	disconnectAfterCreate bool
	disconnected          bool

	rescans       []string
	vmfsCreated   []*model.VmfsDatastoreOption
	vvolCreated   []string
	vvolContainer string
}

func newFakeVsphere(array *fakeArray) *fakeVsphere {
	return &fakeVsphere{
		serials: func() []string {
			var serials []string
			for _, vol := range array.volumes {
				serials = append(serials, vol.Serial)
			}
			return serials
		},
		clusters: []*model.Cluster{
			{
				Name: testCluster,
				Ref:  "domain-c7",
				Hosts: []*model.VirtualizationHost{
					{Name: "esx-a", Ref: "host-21", ConnectionState: "connected", Adapters: []model.HostAdapter{
						{Device: "vmhba2", Kind: model.AdapterFibreChannel, PortWorldWideName: 0x21000024ff3dd4b2},
					}},
					{Name: "esx-b", Ref: "host-22", ConnectionState: "connected", Adapters: []model.HostAdapter{
						{Device: "vmhba0", Kind: model.AdapterOther},
						{Device: "vmhba64", Kind: model.AdapterISCSI, IScsiName: "iqn.1998-01.com.vmware:esx-b"},
					}},
					{Name: "esx-c", Ref: "host-23", ConnectionState: "disconnected", Adapters: []model.HostAdapter{
						{Device: "vmhba2", Kind: model.AdapterFibreChannel, PortWorldWideName: 0x21000024ff3dd4c9},
					}},
				},
			},
		},
	}
}

func (v *fakeVsphere) FindCluster(ctx context.Context, name string) (*model.Cluster, error) {
	for _, c := range v.clusters {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, cerrors.Newf(cerrors.ClusterNotFound, "cluster %s not found", name)
}

func (v *fakeVsphere) Datastores(ctx context.Context) ([]*model.Datastore, error) {
	return v.datastore, nil
}

func (v *fakeVsphere) RescanAllHba(ctx context.Context, host *model.VirtualizationHost) error {
	v.rescans = append(v.rescans, host.Name)
	if v.disconnected {
		return errors.Errorf("host %s is not responding", host.Name)
	}
	return nil
}

func (v *fakeVsphere) QueryAvailableDisksForVmfs(ctx context.Context, host *model.VirtualizationHost) ([]*model.ScsiDisk, error) {
	disks := []*model.ScsiDisk{
		{CanonicalName: "mpx.vmhba0:C0:T0:L0", DevicePath: "/vmfs/devices/disks/mpx.vmhba0:C0:T0:L0"},
	}
	if v.invisible {
		return disks, nil
	}
	for _, serial := range v.serials() {
		name := "naa.624a9370" + strings.ToLower(serial)
		disks = append(disks, &model.ScsiDisk{CanonicalName: name, DevicePath: "/vmfs/devices/disks/" + name})
	}
	return disks, nil
}

func (v *fakeVsphere) QueryVmfsDatastoreCreateOptions(ctx context.Context, host *model.VirtualizationHost, devicePath string) ([]*model.VmfsDatastoreOption, error) {
	return []*model.VmfsDatastoreOption{{DevicePath: devicePath, MajorVersion: 6}}, nil
}

func (v *fakeVsphere) CreateVmfsDatastore(ctx context.Context, host *model.VirtualizationHost, option *model.VmfsDatastoreOption) (*model.Datastore, error) {
	v.vmfsCreated = append(v.vmfsCreated, option)
	if v.disconnectAfterCreate {
		v.disconnected = true
	}
	extent := option.DevicePath[strings.LastIndex(option.DevicePath, "/")+1:]
	return &model.Datastore{
		Name:    option.VolumeName,
		Ref:     "datastore-101",
		Backing: model.VmfsBacking{Extents: []string{extent}},
	}, nil
}

func (v *fakeVsphere) CreateVvolDatastore(ctx context.Context, host *model.VirtualizationHost, name, containerID string) (*model.Datastore, error) {
	v.vvolCreated = append(v.vvolCreated, host.Name)
	v.vvolContainer = containerID
	if v.disconnectAfterCreate {
		v.disconnected = true
	}
	return &model.Datastore{Name: name, Ref: "datastore-" + host.Ref}, nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Storage monitoring service
///////////////////////////////////////////////////////////////////////////////////////////////////

type fakeTask struct {
	states []model.TaskState
	polls  int
	cause  string
}

func (t *fakeTask) QueryTaskInfo(ctx context.Context) (*model.TaskInfo, error) {
	state := t.states[len(t.states)-1]
	if t.polls < len(t.states) {
		state = t.states[t.polls]
	}
	t.polls++
	info := &model.TaskInfo{Key: "task-9", State: state}
	if state == model.TaskStateError {
		info.Error = t.cause
	}
	return info, nil
}

type fakeMonitor struct {
	containers []*model.StorageContainer
	providers  []*model.StorageProvider
	task       *fakeTask
	registered []*model.StorageProviderSpec
	// skip adding the provider when the task succeeds
	lose bool
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{
		containers: []*model.StorageContainer{
			{UUID: "vvol:0a0a0a0a0a0a0a0a-0a0a0a0a0a0a0a0a", Name: "other", ArrayIDs: []string{"com.purestorage:11111111-2222-3333-4444-555555555555"}},
			{UUID: "vvol:3b7b308d98f9425e-87a13e57ada49658", Name: "pure", ArrayIDs: []string{"com.purestorage:" + testArrayID}},
		},
		task: &fakeTask{states: []model.TaskState{model.TaskStateRunning, model.TaskStateSuccess}},
	}
}

func (m *fakeMonitor) QueryStorageContainers(ctx context.Context) ([]*model.StorageContainer, error) {
	return m.containers, nil
}

func (m *fakeMonitor) QueryProviders(ctx context.Context) ([]*model.StorageProvider, error) {
	return m.providers, nil
}

func (m *fakeMonitor) RegisterProvider(ctx context.Context, spec *model.StorageProviderSpec) (task.StatusQuerier, error) {
	m.registered = append(m.registered, spec)
	if !m.lose {
		m.providers = append(m.providers, &model.StorageProvider{Ref: "provider-1", Name: spec.Name, URL: spec.URL})
	}
	return m.task, nil
}
