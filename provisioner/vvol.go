// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

package provisioner

import (
	"context"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

// DefaultProtocolEndpointName is used when a pool request names no endpoint
const DefaultProtocolEndpointName = "pure-protocol-endpoint"

const (
	errorMessageEndpointExists    = "protocol endpoint %s already exists on %s"
	errorMessageContainerNotFound = "no storage container backed by array %s (%s)"
	errorMessageNoMonitor         = "storage monitoring service is not configured"
)

// PoolDatastoreRequest : vVol datastore on the array's storage container
type PoolDatastoreRequest struct {
	ClusterName          string
	Name                 string
	ProtocolEndpointName string
}

// CreatePoolDatastore mounts the array's storage container as a vVol datastore on every
// connected host of the cluster.  A protocol endpoint is created and connected to the host
// group only if the array has none.  The datastore returned by the last host is returned.
func (p *Provisioner) CreatePoolDatastore(ctx context.Context, req *PoolDatastoreRequest) (ds *model.Datastore, err error) {
	peName := req.ProtocolEndpointName
	if peName == "" {
		peName = DefaultProtocolEndpointName
	}
	ctx, l, done := p.begin(ctx, WorkflowPoolDatastore,
		log.Fields{"cluster": req.ClusterName, "datastore": req.Name, "protocol_endpoint": peName})
	defer func() { done(err) }()

	if req.Name == "" {
		return nil, cerrors.Newf(cerrors.InvalidArgument, "datastore name is required")
	}
	if p.monitor == nil {
		return nil, cerrors.Newf(cerrors.InvalidArgument, errorMessageNoMonitor)
	}

	cc, err := p.verifyCluster(ctx, l, req.ClusterName)
	if err != nil {
		return nil, err
	}

	if err = p.ensureProtocolEndpoint(ctx, l, cc, peName); err != nil {
		return nil, err
	}

	if err = p.rescan(ctx, l, cc.ConnectedHosts); err != nil {
		return nil, err
	}

	container, err := p.findContainer(ctx, cc.Array)
	if err != nil {
		return nil, err
	}
	l.Debugf("using storage container %s (%s)", container.Name, container.UUID)

	for _, host := range cc.ConnectedHosts {
		ds, err = p.vsphere.CreateVvolDatastore(ctx, host, req.Name, container.UUID)
		if err != nil {
			return nil, err
		}
		l.Infof("mounted vVol datastore %s on host %s", req.Name, host.Name)
	}

	p.rescanBestEffort(ctx, l, cc.ConnectedHosts)
	return ds, nil
}

// ensureProtocolEndpoint creates at most one endpoint, and only when the array has none
func (p *Provisioner) ensureProtocolEndpoint(ctx context.Context, l *log.Logr, cc *ClusterContext, name string) error {
	existing, err := p.array.ListVolumes(ctx, true)
	if err != nil {
		return err
	}
	for _, pe := range existing {
		if pe.Name == name {
			return cerrors.Newf(cerrors.EndpointAlreadyExists, errorMessageEndpointExists, name, cc.Array.ArrayName)
		}
	}
	if len(existing) > 0 {
		l.Infof("reusing %d existing protocol endpoint(s), first is %s", len(existing), existing[0].Name)
		return nil
	}

	pe, err := p.array.CreateConglomerateVolume(ctx, name)
	if err != nil {
		return err
	}
	l.Infof("created protocol endpoint %s on %s", pe.Name, cc.Array.ArrayName)
	return p.array.ConnectHostGroup(ctx, cc.HostGroup, pe.Name)
}

// findContainer returns the first storage container backed by the array
func (p *Provisioner) findContainer(ctx context.Context, array *model.ArrayInfo) (*model.StorageContainer, error) {
	containers, err := p.monitor.QueryStorageContainers(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range containers {
		if c.BackedByArray(array.ID) {
			return c, nil
		}
	}
	return nil, cerrors.Newf(cerrors.ContainerNotFound, errorMessageContainerNotFound, array.ArrayName, array.ID)
}
