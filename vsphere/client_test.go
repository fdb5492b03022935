// Copyright 2020 Hewlett Packard Enterprise Development LP

package vsphere

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi/simulator"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	"github.com/hpe-storage/vsphere-host-libs/inventory"
	"github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

func TestFindCluster(t *testing.T) {
	simulator.Test(func(ctx context.Context, vc *vim25.Client) {
		c := NewClient(vc, logger.Discard())

		cluster, err := c.FindCluster(ctx, "DC0_C0")
		require.NoError(t, err)
		assert.Equal(t, "DC0_C0", cluster.Name)
		require.Len(t, cluster.Hosts, 3)
		assert.Len(t, cluster.ConnectedHosts(), 3)
		for _, h := range cluster.Hosts {
			assert.NotEmpty(t, h.Ref)
			assert.Equal(t, model.HostConnectionStateConnected, h.ConnectionState)
		}

		_, err = c.FindCluster(ctx, "no-such-cluster")
		assert.Equal(t, cerrors.ClusterNotFound, cerrors.Code(err))
		assert.NoError(t, c.Logout(ctx))
	})
}

func TestFindStandaloneComputeResource(t *testing.T) {
	simulator.Test(func(ctx context.Context, vc *vim25.Client) {
		c := NewClient(vc, nil)

		cr, err := c.FindCluster(ctx, "DC0_H0")
		require.NoError(t, err)
		require.Len(t, cr.Hosts, 1)
		assert.Equal(t, "DC0_H0", cr.Hosts[0].Name)
	})
}

func TestUseDatacenter(t *testing.T) {
	vpx := simulator.VPX()
	vpx.Datacenter = 2
	defer vpx.Remove()

	err := vpx.Run(func(ctx context.Context, vc *vim25.Client) error {
		c := NewClient(vc, logger.Discard())

		_, err := c.FindCluster(ctx, "DC0_C0")
		require.NoError(t, err)
		_, err = c.FindCluster(ctx, "DC1_C0")
		require.NoError(t, err)

		require.NoError(t, c.UseDatacenter(ctx, "DC1"))
		_, err = c.FindCluster(ctx, "DC0_C0")
		assert.Equal(t, cerrors.ClusterNotFound, cerrors.Code(err))
		cluster, err := c.FindCluster(ctx, "DC1_C0")
		require.NoError(t, err)
		assert.Len(t, cluster.Hosts, 3)

		err = c.UseDatacenter(ctx, "DC9")
		assert.Equal(t, cerrors.NotFound, cerrors.Code(err))
		return nil
	})
	require.NoError(t, err)
}

func TestDatastores(t *testing.T) {
	simulator.Test(func(ctx context.Context, vc *vim25.Client) {
		c := NewClient(vc, nil)

		stores, err := c.Datastores(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, stores)
		for _, ds := range stores {
			assert.NotEmpty(t, ds.Name)
		}
		// simulator datastores are local
		assert.Empty(t, inventory.ListStorageBackedDatastores(stores))
	})
}

func TestConvertHost(t *testing.T) {
	hs := &mo.HostSystem{
		ManagedEntity: mo.ManagedEntity{
			ExtensibleManagedObject: mo.ExtensibleManagedObject{
				Self: types.ManagedObjectReference{Type: "HostSystem", Value: "host-21"},
			},
			Name: "esx-a.example.com",
		},
		Runtime: types.HostRuntimeInfo{ConnectionState: types.HostSystemConnectionStateConnected},
		Config: &types.HostConfigInfo{
			StorageDevice: &types.HostStorageDeviceInfo{
				HostBusAdapter: []types.BaseHostHostBusAdapter{
					&types.HostBlockHba{HostHostBusAdapter: types.HostHostBusAdapter{Device: "vmhba0"}},
					&types.HostFibreChannelHba{
						HostHostBusAdapter: types.HostHostBusAdapter{Device: "vmhba2"},
						PortWorldWideName:  0x21000024ff3dd4b2,
					},
					&types.HostInternetScsiHba{
						HostHostBusAdapter: types.HostHostBusAdapter{Device: "vmhba64"},
						IScsiName:          "iqn.1998-01.com.vmware:esx-a",
					},
				},
			},
		},
	}

	h := convertHost(hs)
	assert.Equal(t, "esx-a.example.com", h.Name)
	assert.Equal(t, "host-21", h.Ref)
	assert.True(t, h.IsConnected())
	require.Len(t, h.Adapters, 3)
	assert.Equal(t, model.AdapterOther, h.Adapters[0].Kind)
	assert.Equal(t, model.AdapterFibreChannel, h.Adapters[1].Kind)
	assert.Equal(t, int64(0x21000024ff3dd4b2), h.Adapters[1].PortWorldWideName)
	assert.Equal(t, model.AdapterISCSI, h.Adapters[2].Kind)
	assert.Equal(t, "iqn.1998-01.com.vmware:esx-a", h.Adapters[2].IScsiName)

	// disconnected host without config
	h = convertHost(&mo.HostSystem{
		Runtime: types.HostRuntimeInfo{ConnectionState: types.HostSystemConnectionStateDisconnected},
	})
	assert.False(t, h.IsConnected())
	assert.Empty(t, h.Adapters)
}

func TestConvertDatastore(t *testing.T) {
	vmfs := &mo.Datastore{
		ManagedEntity: mo.ManagedEntity{Name: "ds-vmfs-01"},
		Summary:       types.DatastoreSummary{Capacity: 1 << 40, FreeSpace: 1 << 39},
		Info: &types.VmfsDatastoreInfo{
			Vmfs: &types.HostVmfsVolume{
				Extent: []types.HostScsiDiskPartition{
					{DiskName: "naa.624a9370b8f3a1c2d4e5f60711aa2233", Partition: 1},
				},
			},
		},
	}
	d := convertDatastore(vmfs)
	assert.Equal(t, "ds-vmfs-01", d.Name)
	assert.Equal(t, int64(1<<40), d.Capacity)
	assert.Equal(t, model.VmfsBacking{Extents: []string{"naa.624a9370b8f3a1c2d4e5f60711aa2233"}}, d.Backing)

	vvol := &mo.Datastore{
		ManagedEntity: mo.ManagedEntity{Name: "ds-vvol-01"},
		Info: &types.VvolDatastoreInfo{
			VvolDS: &types.HostVvolVolume{
				HostPE: []types.VVolHostPE{
					{
						Key: types.ManagedObjectReference{Type: "HostSystem", Value: "host-21"},
						ProtocolEndpoint: []types.HostProtocolEndpoint{
							{DeviceId: "naa.624a9370b8f3a1c2d4e5f60711aa2299"},
						},
					},
				},
			},
		},
	}
	d = convertDatastore(vvol)
	require.IsType(t, model.VvolBacking{}, d.Backing)
	backing := d.Backing.(model.VvolBacking)
	require.Len(t, backing.HostProtocolEndpoints, 1)
	assert.Equal(t, "host-21", backing.HostProtocolEndpoints[0].HostRef)
	assert.Equal(t, []string{"naa.624a9370b8f3a1c2d4e5f60711aa2299"}, backing.HostProtocolEndpoints[0].DeviceIDs)

	nfs := &mo.Datastore{ManagedEntity: mo.ManagedEntity{Name: "nfs-01"}, Info: &types.NasDatastoreInfo{}}
	assert.Nil(t, convertDatastore(nfs).Backing)
}

func TestConvertVmfsOption(t *testing.T) {
	spec := &types.VmfsDatastoreCreateSpec{Vmfs: types.HostVmfsSpec{VolumeName: "", MajorVersion: 6}}
	opt := convertVmfsOption("/vmfs/devices/disks/naa.624a9370b8f3a1c2d4e5f60711aa2233",
		types.VmfsDatastoreOption{Spec: spec})
	require.NotNil(t, opt)
	assert.Equal(t, int32(6), opt.MajorVersion)
	assert.Same(t, spec, opt.Native)

	assert.Nil(t, convertVmfsOption("/vmfs/devices/disks/x", types.VmfsDatastoreOption{Spec: &types.VmfsDatastoreExtendSpec{}}))
}
