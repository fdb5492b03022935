// Copyright 2020 Hewlett Packard Enterprise Development LP

package vsphere

import (
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/hpe-storage/vsphere-host-libs/model"
)

func convertHost(hs *mo.HostSystem) *model.VirtualizationHost {
	h := &model.VirtualizationHost{
		Name:            hs.Name,
		Ref:             hs.Self.Value,
		ConnectionState: string(hs.Runtime.ConnectionState),
	}
	// disconnected hosts report no config
	if hs.Config == nil || hs.Config.StorageDevice == nil {
		return h
	}
	for _, hba := range hs.Config.StorageDevice.HostBusAdapter {
		h.Adapters = append(h.Adapters, convertAdapter(hba))
	}
	return h
}

func convertAdapter(hba types.BaseHostHostBusAdapter) model.HostAdapter {
	adapter := model.HostAdapter{
		Device: hba.GetHostHostBusAdapter().Device,
		Kind:   model.AdapterOther,
	}
	switch v := hba.(type) {
	case *types.HostFibreChannelOverEthernetHba:
		adapter.Kind = model.AdapterFibreChannel
		adapter.PortWorldWideName = v.PortWorldWideName
	case *types.HostFibreChannelHba:
		adapter.Kind = model.AdapterFibreChannel
		adapter.PortWorldWideName = v.PortWorldWideName
	case *types.HostInternetScsiHba:
		adapter.Kind = model.AdapterISCSI
		adapter.IScsiName = v.IScsiName
	}
	return adapter
}

func convertDatastore(ds *mo.Datastore) *model.Datastore {
	d := &model.Datastore{
		Name:      ds.Name,
		Ref:       ds.Self.Value,
		URL:       ds.Summary.Url,
		Capacity:  ds.Summary.Capacity,
		FreeSpace: ds.Summary.FreeSpace,
	}

	switch info := ds.Info.(type) {
	case *types.VmfsDatastoreInfo:
		backing := model.VmfsBacking{}
		if info.Vmfs != nil {
			for _, extent := range info.Vmfs.Extent {
				backing.Extents = append(backing.Extents, extent.DiskName)
			}
		}
		d.Backing = backing
	case *types.VvolDatastoreInfo:
		backing := model.VvolBacking{}
		if info.VvolDS != nil {
			for _, hostPE := range info.VvolDS.HostPE {
				record := model.HostProtocolEndpoint{HostRef: hostPE.Key.Value}
				for _, pe := range hostPE.ProtocolEndpoint {
					record.DeviceIDs = append(record.DeviceIDs, pe.DeviceId)
				}
				backing.HostProtocolEndpoints = append(backing.HostProtocolEndpoints, record)
			}
		}
		d.Backing = backing
	}
	return d
}

func convertScsiDisk(disk *types.HostScsiDisk) *model.ScsiDisk {
	return &model.ScsiDisk{
		CanonicalName: disk.CanonicalName,
		DevicePath:    disk.DevicePath,
		DisplayName:   disk.DisplayName,
		Capacity:      int64(disk.Capacity.BlockSize) * disk.Capacity.Block,
	}
}

// convertVmfsOption keeps only options that create a new datastore
func convertVmfsOption(devicePath string, option types.VmfsDatastoreOption) *model.VmfsDatastoreOption {
	spec, ok := option.Spec.(*types.VmfsDatastoreCreateSpec)
	if !ok {
		return nil
	}
	return &model.VmfsDatastoreOption{
		DevicePath:   devicePath,
		VolumeName:   spec.Vmfs.VolumeName,
		MajorVersion: spec.Vmfs.MajorVersion,
		Native:       spec,
	}
}
