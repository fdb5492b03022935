// Copyright 2020 Hewlett Packard Enterprise Development LP

// Package vsphere reads cluster, host and datastore inventory from vCenter and drives the
// host storage operations used to create datastores.
package vsphere

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

const (
	computeResourceType = "ComputeResource"
	clusterType         = "ClusterComputeResource"
	hostType            = "HostSystem"
	datastoreType       = "Datastore"
)

var (
	hostProperties      = []string{"name", "runtime.connectionState", "config.storageDevice.hostBusAdapter"}
	datastoreProperties = []string{"name", "summary", "info"}
)

const (
	errorMessageClusterNotFound    = "cluster %s not found on vCenter %s"
	errorMessageDatacenterNotFound = "datacenter %s not found on vCenter %s"
	errorMessageNoCreateSpec       = "VMFS option for %s on host %s carries no create spec"
	errorMessageDatastoreMissing   = "datastore %s not found after creation"
)

// Client wraps an authenticated vim25 client
type Client struct {
	vim *vim25.Client
	// inventory searches start here
	root   types.ManagedObjectReference
	logout func(context.Context) error
	log    *log.Logr
}

// Dial logs in to vCenter.  rawURL may omit the /sdk path.
func Dial(ctx context.Context, rawURL, username, password string, insecure bool, l *log.Logr) (*Client, error) {
	u, err := soap.ParseURL(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid vCenter url %s", rawURL)
	}
	if username != "" {
		u.User = url.UserPassword(username, password)
	}

	gc, err := govmomi.NewClient(ctx, u, insecure)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to log in to vCenter %s", u.Host)
	}
	c := NewClient(gc.Client, l)
	c.logout = gc.Logout
	return c, nil
}

// NewClient wraps an already authenticated vim25 client
func NewClient(c *vim25.Client, l *log.Logr) *Client {
	if l == nil {
		l = log.Discard()
	}
	return &Client{vim: c, root: c.ServiceContent.RootFolder, log: l}
}

// UseDatacenter limits inventory searches to the named datacenter
func (c *Client) UseDatacenter(ctx context.Context, name string) error {
	c.log.Tracef(">>>>> UseDatacenter called, name=%s", name)
	defer c.log.Trace("<<<<< UseDatacenter")

	dc, err := find.NewFinder(c.vim, false).Datacenter(ctx, name)
	if err != nil {
		var notFound *find.NotFoundError
		if errors.As(err, &notFound) {
			return cerrors.Newf(cerrors.NotFound, errorMessageDatacenterNotFound, name, c.vim.URL().Host)
		}
		return errors.Wrapf(err, "unable to find datacenter %s", name)
	}
	c.root = dc.Reference()
	return nil
}

// VimClient returns the underlying vim25 client
func (c *Client) VimClient() *vim25.Client {
	return c.vim
}

// Logout ends the session opened by Dial
func (c *Client) Logout(ctx context.Context) error {
	if c.logout == nil {
		return nil
	}
	return c.logout(ctx)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Inventory
///////////////////////////////////////////////////////////////////////////////////////////////////

// FindCluster returns the compute resource with the given name and its hosts.  This is
// either a cluster or the compute resource of a standalone host.  Names are expected to be
// unique; if several share the name the first one returned by the inventory is used.
func (c *Client) FindCluster(ctx context.Context, name string) (*model.Cluster, error) {
	c.log.Tracef(">>>>> FindCluster called, name=%s", name)
	defer c.log.Trace("<<<<< FindCluster")

	var clusters []mo.ComputeResource
	kinds := []string{computeResourceType, clusterType}
	if err := c.retrieveAll(ctx, kinds, []string{"name", "host"}, &clusters); err != nil {
		return nil, err
	}

	var found *mo.ComputeResource
	matches := 0
	for i := range clusters {
		if clusters[i].Name != name {
			continue
		}
		matches++
		if found == nil {
			found = &clusters[i]
		}
	}
	if found == nil {
		return nil, cerrors.Newf(cerrors.ClusterNotFound, errorMessageClusterNotFound, name, c.vim.URL().Host)
	}
	if matches > 1 {
		c.log.Warnf("%d clusters named %s, using %s", matches, name, found.Self.Value)
	}

	hosts, err := c.hosts(ctx, found.Host)
	if err != nil {
		return nil, err
	}
	return &model.Cluster{Name: found.Name, Ref: found.Self.Value, Hosts: hosts}, nil
}

// hosts returns the hosts in the order of refs
func (c *Client) hosts(ctx context.Context, refs []types.ManagedObjectReference) ([]*model.VirtualizationHost, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	var systems []mo.HostSystem
	pc := property.DefaultCollector(c.vim)
	if err := pc.Retrieve(ctx, refs, hostProperties, &systems); err != nil {
		return nil, errors.Wrap(err, "unable to retrieve cluster hosts")
	}

	byRef := make(map[string]*model.VirtualizationHost, len(systems))
	for i := range systems {
		byRef[systems[i].Self.Value] = convertHost(&systems[i])
	}
	hosts := make([]*model.VirtualizationHost, 0, len(refs))
	for _, ref := range refs {
		if h, ok := byRef[ref.Value]; ok {
			hosts = append(hosts, h)
		}
	}
	return hosts, nil
}

// Datastores returns every datastore in the inventory
func (c *Client) Datastores(ctx context.Context) ([]*model.Datastore, error) {
	c.log.Trace(">>>>> Datastores called")
	defer c.log.Trace("<<<<< Datastores")

	var stores []mo.Datastore
	if err := c.retrieveAll(ctx, []string{datastoreType}, datastoreProperties, &stores); err != nil {
		return nil, err
	}
	result := make([]*model.Datastore, 0, len(stores))
	for i := range stores {
		result = append(result, convertDatastore(&stores[i]))
	}
	return result, nil
}

func (c *Client) datastore(ctx context.Context, ref types.ManagedObjectReference) (*model.Datastore, error) {
	var ds mo.Datastore
	pc := property.DefaultCollector(c.vim)
	if err := pc.RetrieveOne(ctx, ref, datastoreProperties, &ds); err != nil {
		if soap.IsSoapFault(err) {
			return nil, cerrors.Newf(cerrors.NotFound, errorMessageDatastoreMissing, ref.Value)
		}
		return nil, errors.Wrapf(err, "unable to retrieve datastore %s", ref.Value)
	}
	return convertDatastore(&ds), nil
}

// retrieveAll loads every managed object of the given kinds below c.root into dst
func (c *Client) retrieveAll(ctx context.Context, kinds []string, props []string, dst interface{}) error {
	m := view.NewManager(c.vim)
	v, err := m.CreateContainerView(ctx, c.root, kinds, true)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s view", kinds[0])
	}
	defer v.Destroy(ctx)

	if err = v.Retrieve(ctx, kinds, props, dst); err != nil {
		return errors.Wrapf(err, "unable to retrieve %s inventory", kinds[0])
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Host storage operations
///////////////////////////////////////////////////////////////////////////////////////////////////

func (c *Client) hostSystem(host *model.VirtualizationHost) *object.HostSystem {
	return object.NewHostSystem(c.vim, types.ManagedObjectReference{Type: hostType, Value: host.Ref})
}

func (c *Client) datastoreSystem(ctx context.Context, host *model.VirtualizationHost) (*object.HostDatastoreSystem, error) {
	dss, err := c.hostSystem(host).ConfigManager().DatastoreSystem(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get datastore system of host %s", host.Name)
	}
	return dss, nil
}

// RescanAllHba rescans every storage adapter of the host
func (c *Client) RescanAllHba(ctx context.Context, host *model.VirtualizationHost) error {
	c.log.Tracef(">>>>> RescanAllHba called, host=%s", host.Name)
	defer c.log.Trace("<<<<< RescanAllHba")

	ss, err := c.hostSystem(host).ConfigManager().StorageSystem(ctx)
	if err != nil {
		return errors.Wrapf(err, "unable to get storage system of host %s", host.Name)
	}
	if err = ss.RescanAllHba(ctx); err != nil {
		return errors.Wrapf(err, "rescan of host %s failed", host.Name)
	}
	return nil
}

// QueryAvailableDisksForVmfs returns the disks of the host that can hold a new VMFS datastore
func (c *Client) QueryAvailableDisksForVmfs(ctx context.Context, host *model.VirtualizationHost) ([]*model.ScsiDisk, error) {
	c.log.Tracef(">>>>> QueryAvailableDisksForVmfs called, host=%s", host.Name)
	defer c.log.Trace("<<<<< QueryAvailableDisksForVmfs")

	dss, err := c.datastoreSystem(ctx, host)
	if err != nil {
		return nil, err
	}
	disks, err := dss.QueryAvailableDisksForVmfs(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to query available disks of host %s", host.Name)
	}
	result := make([]*model.ScsiDisk, 0, len(disks))
	for i := range disks {
		result = append(result, convertScsiDisk(&disks[i]))
	}
	return result, nil
}

// QueryVmfsDatastoreCreateOptions returns the VMFS creation options for a device
func (c *Client) QueryVmfsDatastoreCreateOptions(ctx context.Context, host *model.VirtualizationHost, devicePath string) ([]*model.VmfsDatastoreOption, error) {
	c.log.Tracef(">>>>> QueryVmfsDatastoreCreateOptions called, host=%s device=%s", host.Name, devicePath)
	defer c.log.Trace("<<<<< QueryVmfsDatastoreCreateOptions")

	dss, err := c.datastoreSystem(ctx, host)
	if err != nil {
		return nil, err
	}
	options, err := dss.QueryVmfsDatastoreCreateOptions(ctx, devicePath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to query VMFS options for %s on host %s", devicePath, host.Name)
	}
	var result []*model.VmfsDatastoreOption
	for _, o := range options {
		if opt := convertVmfsOption(devicePath, o); opt != nil {
			result = append(result, opt)
		}
	}
	return result, nil
}

// CreateVmfsDatastore creates a VMFS datastore from an option returned by
// QueryVmfsDatastoreCreateOptions, applying the option's name and version.
func (c *Client) CreateVmfsDatastore(ctx context.Context, host *model.VirtualizationHost, option *model.VmfsDatastoreOption) (*model.Datastore, error) {
	c.log.Tracef(">>>>> CreateVmfsDatastore called, host=%s name=%s", host.Name, option.VolumeName)
	defer c.log.Trace("<<<<< CreateVmfsDatastore")

	spec, ok := option.Native.(*types.VmfsDatastoreCreateSpec)
	if !ok || spec == nil {
		return nil, cerrors.Newf(cerrors.InvalidArgument, errorMessageNoCreateSpec, option.DevicePath, host.Name)
	}
	spec.Vmfs.VolumeName = option.VolumeName
	if option.MajorVersion > 0 {
		spec.Vmfs.MajorVersion = option.MajorVersion
	}

	dss, err := c.datastoreSystem(ctx, host)
	if err != nil {
		return nil, err
	}
	ds, err := dss.CreateVmfsDatastore(ctx, *spec)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create VMFS datastore %s on host %s", option.VolumeName, host.Name)
	}
	return c.datastore(ctx, ds.Reference())
}

// CreateVvolDatastore mounts the storage container as a vVol datastore on the host
func (c *Client) CreateVvolDatastore(ctx context.Context, host *model.VirtualizationHost, name, containerID string) (*model.Datastore, error) {
	c.log.Tracef(">>>>> CreateVvolDatastore called, host=%s name=%s container=%s", host.Name, name, containerID)
	defer c.log.Trace("<<<<< CreateVvolDatastore")

	dss, err := c.datastoreSystem(ctx, host)
	if err != nil {
		return nil, err
	}
	req := types.CreateVvolDatastore{
		This: dss.Reference(),
		Spec: types.HostDatastoreSystemVvolDatastoreSpec{
			Name: name,
			ScId: containerID,
		},
	}
	res, err := methods.CreateVvolDatastore(ctx, c.vim, &req)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create vVol datastore %s on host %s", name, host.Name)
	}
	return c.datastore(ctx, res.Returnval)
}
