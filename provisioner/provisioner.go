// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

// Package provisioner creates array backed datastores for vSphere clusters.  Every workflow
// is synchronous; callers must not run two workflows against the same cluster concurrently.
package provisioner

import (
	"context"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	"github.com/hpe-storage/vsphere-host-libs/inventory"
	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/metrics"
	"github.com/hpe-storage/vsphere-host-libs/model"
	"github.com/hpe-storage/vsphere-host-libs/resolver"
	"github.com/hpe-storage/vsphere-host-libs/task"
)

const (
	errorMessageNoConnectedHosts = "no connected hosts found for cluster %s"
)

// Workflow names used for spans and metrics
const (
	WorkflowVerifyCluster    = "verify_cluster"
	WorkflowBlockDatastore   = "create_block_datastore"
	WorkflowPoolDatastore    = "create_pool_datastore"
	WorkflowRegisterProvider = "register_storage_provider"
	WorkflowRescan           = "rescan_storage"
	WorkflowListDatastores   = "list_datastores"
)

// ArrayClient is the array side of provisioning
type ArrayClient interface {
	Get(ctx context.Context) (*model.ArrayInfo, error)
	ListHosts(ctx context.Context) ([]*model.ArrayHost, error)
	ListNetworkInterfaces(ctx context.Context) ([]*model.NetworkInterface, error)
	CreateVolume(ctx context.Context, name string, sizeBytes uint64) (*model.ArrayVolume, error)
	CreateConglomerateVolume(ctx context.Context, name string) (*model.ArrayVolume, error)
	ConnectHostGroup(ctx context.Context, hostGroup, volumeName string) error
	ListVolumes(ctx context.Context, protocolEndpoint bool) ([]*model.ArrayVolume, error)
}

// VsphereClient is the vCenter side of provisioning
type VsphereClient interface {
	FindCluster(ctx context.Context, name string) (*model.Cluster, error)
	Datastores(ctx context.Context) ([]*model.Datastore, error)
	RescanAllHba(ctx context.Context, host *model.VirtualizationHost) error
	QueryAvailableDisksForVmfs(ctx context.Context, host *model.VirtualizationHost) ([]*model.ScsiDisk, error)
	QueryVmfsDatastoreCreateOptions(ctx context.Context, host *model.VirtualizationHost, devicePath string) ([]*model.VmfsDatastoreOption, error)
	CreateVmfsDatastore(ctx context.Context, host *model.VirtualizationHost, option *model.VmfsDatastoreOption) (*model.Datastore, error)
	CreateVvolDatastore(ctx context.Context, host *model.VirtualizationHost, name, containerID string) (*model.Datastore, error)
}

// StorageMonitor is the vCenter storage monitoring service
type StorageMonitor interface {
	QueryStorageContainers(ctx context.Context) ([]*model.StorageContainer, error)
	QueryProviders(ctx context.Context) ([]*model.StorageProvider, error)
	RegisterProvider(ctx context.Context, spec *model.StorageProviderSpec) (task.StatusQuerier, error)
}

// ClusterContext is the verified state every workflow starts from
type ClusterContext struct {
	Cluster        *model.Cluster
	HostGroup      string
	ConnectedHosts []*model.VirtualizationHost
	Array          *model.ArrayInfo
}

// Provisioner runs provisioning workflows against one array and one vCenter
type Provisioner struct {
	array       ArrayClient
	vsphere     VsphereClient
	monitor     StorageMonitor
	taskMonitor *task.Monitor
	taskTimeout time.Duration
	log         *log.Logr
}

// Option configures a Provisioner
type Option func(*Provisioner)

// WithLogger sets the logger, log.Discard() by default
func WithLogger(l *log.Logr) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.log = l
		}
	}
}

// WithTaskMonitor replaces the monitor used to wait for storage monitoring tasks
func WithTaskMonitor(m *task.Monitor) Option {
	return func(p *Provisioner) {
		p.taskMonitor = m
	}
}

// WithTaskTimeout bounds the wait for storage monitoring tasks
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Provisioner) {
		if d > 0 {
			p.taskTimeout = d
		}
	}
}

// New returns a Provisioner.  monitor may be nil when only block datastores are provisioned.
func New(array ArrayClient, vsphere VsphereClient, monitor StorageMonitor, opts ...Option) *Provisioner {
	p := &Provisioner{
		array:       array,
		vsphere:     vsphere,
		monitor:     monitor,
		taskTimeout: task.DefaultTimeout,
		log:         log.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.taskMonitor == nil {
		p.taskMonitor = task.NewMonitor(p.log)
	}
	return p
}

// begin opens the span and log fields of one workflow.  The returned func must be called
// with the workflow result.
func (p *Provisioner) begin(ctx context.Context, workflow string, fields log.Fields) (context.Context, *log.Logr, func(error)) {
	span, ctx, l := p.log.StartSpan(ctx, workflow)
	if fields == nil {
		fields = log.Fields{}
	}
	fields["workflow"] = workflow
	fields["workflow_id"] = uuid.NewV4().String()
	l = l.WithFields(fields)
	start := time.Now()

	l.Tracef(">>>>> %s called", workflow)
	return ctx, l, func(err error) {
		if err != nil {
			span.SetTag("error", true)
			l.Errorf("%s failed: %v", workflow, err)
		}
		span.Finish()
		metrics.ObserveWorkflow(workflow, start, err)
		l.Tracef("<<<<< %s", workflow)
	}
}

// VerifyCluster checks that the cluster exists, that all its hosts map onto a single array
// host group and that at least one host is connected.
func (p *Provisioner) VerifyCluster(ctx context.Context, clusterName string) (cc *ClusterContext, err error) {
	ctx, l, done := p.begin(ctx, WorkflowVerifyCluster, log.Fields{"cluster": clusterName})
	defer func() { done(err) }()

	return p.verifyCluster(ctx, l, clusterName)
}

func (p *Provisioner) verifyCluster(ctx context.Context, l *log.Logr, clusterName string) (*ClusterContext, error) {
	cluster, err := p.vsphere.FindCluster(ctx, clusterName)
	if err != nil {
		return nil, err
	}

	array, err := p.array.Get(ctx)
	if err != nil {
		return nil, err
	}
	arrayHosts, err := p.array.ListHosts(ctx)
	if err != nil {
		return nil, err
	}

	for _, h := range cluster.Hosts {
		if resolver.Unresolvable(h) {
			l.Warnf("skipping host %s (%s), it reports no storage adapters", h.Name, h.ConnectionState)
		}
	}
	hostGroup, err := resolver.ResolveHostGroupForCluster(cluster, arrayHosts, array.ArrayName)
	if err != nil {
		return nil, err
	}

	connected := cluster.ConnectedHosts()
	if len(connected) == 0 {
		return nil, cerrors.Newf(cerrors.NoConnectedHosts, errorMessageNoConnectedHosts, clusterName)
	}
	l.Debugf("cluster %s maps to host group %s on %s, %d of %d hosts connected",
		clusterName, hostGroup, array.ArrayName, len(connected), len(cluster.Hosts))

	return &ClusterContext{
		Cluster:        cluster,
		HostGroup:      hostGroup,
		ConnectedHosts: connected,
		Array:          array,
	}, nil
}

// ListPureDatastores returns the datastores backed by array devices
func (p *Provisioner) ListPureDatastores(ctx context.Context) (stores []*model.Datastore, err error) {
	ctx, _, done := p.begin(ctx, WorkflowListDatastores, nil)
	defer func() { done(err) }()

	all, err := p.vsphere.Datastores(ctx)
	if err != nil {
		return nil, err
	}
	return inventory.ListStorageBackedDatastores(all), nil
}

// RescanStorage rescans the adapters of every connected host of the cluster
func (p *Provisioner) RescanStorage(ctx context.Context, clusterName string) (err error) {
	ctx, l, done := p.begin(ctx, WorkflowRescan, log.Fields{"cluster": clusterName})
	defer func() { done(err) }()

	cluster, err := p.vsphere.FindCluster(ctx, clusterName)
	if err != nil {
		return err
	}
	hosts := cluster.ConnectedHosts()
	if len(hosts) == 0 {
		return cerrors.Newf(cerrors.NoConnectedHosts, errorMessageNoConnectedHosts, clusterName)
	}
	return p.rescan(ctx, l, hosts)
}

// rescan stops at the first failure
func (p *Provisioner) rescan(ctx context.Context, l *log.Logr, hosts []*model.VirtualizationHost) error {
	for _, h := range hosts {
		l.Debugf("rescanning host %s", h.Name)
		if err := p.vsphere.RescanAllHba(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

// rescanBestEffort rescans every host and only logs failures.  It runs after a datastore
// was created, which later host failures do not undo.
func (p *Provisioner) rescanBestEffort(ctx context.Context, l *log.Logr, hosts []*model.VirtualizationHost) {
	for _, h := range hosts {
		if err := p.vsphere.RescanAllHba(ctx, h); err != nil {
			metrics.RescanFailuresTotal.Inc()
			l.Warnf("rescan of host %s failed: %v", h.Name, err)
		}
	}
}
