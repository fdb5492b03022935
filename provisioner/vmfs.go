// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

package provisioner

import (
	"context"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	"github.com/hpe-storage/vsphere-host-libs/identifier"
	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

const (
	errorMessageDeviceNotVisible = "volume %s (serial %s) is not visible on host %s"
	errorMessageNoVmfsOptions    = "no VMFS create options returned for %s on host %s"
)

// BlockDatastoreRequest : VMFS datastore on a new array volume
type BlockDatastoreRequest struct {
	ClusterName   string
	Name          string
	SizeBytes     uint64
	FormatVersion int32 // VMFS major version, 0 keeps the vCenter default
}

// CreateBlockDatastore creates a volume, connects it to the cluster's host group and
// formats it as VMFS through the first connected host.
func (p *Provisioner) CreateBlockDatastore(ctx context.Context, req *BlockDatastoreRequest) (ds *model.Datastore, err error) {
	ctx, l, done := p.begin(ctx, WorkflowBlockDatastore, log.Fields{"cluster": req.ClusterName, "datastore": req.Name})
	defer func() { done(err) }()

	if req.Name == "" || req.SizeBytes == 0 {
		return nil, cerrors.Newf(cerrors.InvalidArgument, "datastore name and size are required")
	}

	cc, err := p.verifyCluster(ctx, l, req.ClusterName)
	if err != nil {
		return nil, err
	}
	host := cc.ConnectedHosts[0]

	volume, err := p.array.CreateVolume(ctx, req.Name, req.SizeBytes)
	if err != nil {
		return nil, err
	}
	l.Infof("created volume %s serial %s on %s", volume.Name, volume.Serial, cc.Array.ArrayName)
	if err = p.array.ConnectHostGroup(ctx, cc.HostGroup, volume.Name); err != nil {
		return nil, err
	}

	if err = p.vsphere.RescanAllHba(ctx, host); err != nil {
		return nil, err
	}
	disks, err := p.vsphere.QueryAvailableDisksForVmfs(ctx, host)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(disks))
	for _, d := range disks {
		paths = append(paths, d.DevicePath)
	}
	devicePath, found := identifier.FindDevicePath(paths, volume.Serial)
	if !found {
		return nil, cerrors.Newf(cerrors.DeviceNotVisible, errorMessageDeviceNotVisible, volume.Name, volume.Serial, host.Name)
	}

	options, err := p.vsphere.QueryVmfsDatastoreCreateOptions(ctx, host, devicePath)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, cerrors.Newf(cerrors.Internal, errorMessageNoVmfsOptions, devicePath, host.Name)
	}
	// vCenter returns a single option for a blank device
	option := options[0]
	option.VolumeName = req.Name
	if req.FormatVersion > 0 {
		option.MajorVersion = req.FormatVersion
	}

	ds, err = p.vsphere.CreateVmfsDatastore(ctx, host, option)
	if err != nil {
		return nil, err
	}
	l.Infof("created VMFS datastore %s on host %s", ds.Name, host.Name)

	p.rescanBestEffort(ctx, l, cc.ConnectedHosts)
	return ds, nil
}
