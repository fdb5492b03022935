// Copyright 2020 Hewlett Packard Enterprise Development LP

// Package storagemonitor talks to the vCenter Storage Monitoring Service, which tracks
// VASA providers and the vVol storage containers they publish.
package storagemonitor

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi/sms/methods"
	smstypes "github.com/vmware/govmomi/sms/types"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"
	vimtypes "github.com/vmware/govmomi/vim25/types"

	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/model"
	"github.com/hpe-storage/vsphere-host-libs/task"
)

const (
	servicePath      = "/sms/sdk"
	serviceNamespace = "sms"
)

var serviceInstance = vimtypes.ManagedObjectReference{
	Type:  "SmsServiceInstance",
	Value: "ServiceInstance",
}

// Client is bound to the storage manager of one vCenter
type Client struct {
	sc             *soap.Client
	storageManager vimtypes.ManagedObjectReference
	log            *log.Logr
}

// NewClient opens the monitoring service endpoint using the session of an authenticated
// vCenter client.
func NewClient(ctx context.Context, vc *vim25.Client, l *log.Logr) (*Client, error) {
	if l == nil {
		l = log.Discard()
	}
	l.Trace(">>>>> NewClient called")
	defer l.Trace("<<<<< NewClient")

	sc := vc.Client.NewServiceClient(servicePath, serviceNamespace)
	res, err := methods.QueryStorageManager(ctx, sc, &smstypes.QueryStorageManager{This: serviceInstance})
	if err != nil {
		return nil, errors.Wrap(err, "unable to reach the storage monitoring service")
	}
	return &Client{sc: sc, storageManager: res.Returnval, log: l}, nil
}

// QueryStorageContainers returns every storage container known to vCenter
func (c *Client) QueryStorageContainers(ctx context.Context) ([]*model.StorageContainer, error) {
	c.log.Trace(">>>>> QueryStorageContainers called")
	defer c.log.Trace("<<<<< QueryStorageContainers")

	res, err := methods.QueryStorageContainer(ctx, c.sc, &smstypes.QueryStorageContainer{This: c.storageManager})
	if err != nil {
		return nil, errors.Wrap(err, "unable to query storage containers")
	}
	if res.Returnval == nil {
		return nil, nil
	}
	containers := make([]*model.StorageContainer, 0, len(res.Returnval.StorageContainer))
	for i := range res.Returnval.StorageContainer {
		containers = append(containers, convertContainer(&res.Returnval.StorageContainer[i]))
	}
	return containers, nil
}

// QueryProviders returns the registered VASA providers
func (c *Client) QueryProviders(ctx context.Context) ([]*model.StorageProvider, error) {
	c.log.Trace(">>>>> QueryProviders called")
	defer c.log.Trace("<<<<< QueryProviders")

	res, err := methods.QueryProvider(ctx, c.sc, &smstypes.QueryProvider{This: c.storageManager})
	if err != nil {
		return nil, errors.Wrap(err, "unable to query storage providers")
	}

	providers := make([]*model.StorageProvider, 0, len(res.Returnval))
	for _, ref := range res.Returnval {
		info, err := methods.QueryProviderInfo(ctx, c.sc, &smstypes.QueryProviderInfo{This: ref})
		if err != nil {
			return nil, errors.Wrapf(err, "unable to query storage provider %s", ref.Value)
		}
		providers = append(providers, convertProvider(ref, info.Returnval))
	}
	return providers, nil
}

// RegisterProvider starts the registration of a VASA provider.  The returned task is
// polled with task.Monitor.
func (c *Client) RegisterProvider(ctx context.Context, spec *model.StorageProviderSpec) (task.StatusQuerier, error) {
	c.log.Tracef(">>>>> RegisterProvider called, name=%s url=%s", spec.Name, spec.URL)
	defer c.log.Trace("<<<<< RegisterProvider")

	req := smstypes.RegisterProvider_Task{
		This: c.storageManager,
		ProviderSpec: &smstypes.VasaProviderSpec{
			SmsProviderSpec: smstypes.SmsProviderSpec{
				Name:        spec.Name,
				Description: spec.Description,
			},
			Username: spec.Username,
			Password: spec.Password,
			Url:      spec.URL,
		},
	}
	res, err := methods.RegisterProvider_Task(ctx, c.sc, &req)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to register storage provider %s", spec.Name)
	}
	return &smsTask{sc: c.sc, ref: res.Returnval}, nil
}

// smsTask reports the status of a monitoring service task
type smsTask struct {
	sc  *soap.Client
	ref vimtypes.ManagedObjectReference
}

func (t *smsTask) QueryTaskInfo(ctx context.Context) (*model.TaskInfo, error) {
	res, err := methods.QuerySmsTaskInfo(ctx, t.sc, &smstypes.QuerySmsTaskInfo{This: t.ref})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to query task %s", t.ref.Value)
	}
	return convertTaskInfo(t.ref.Value, &res.Returnval), nil
}
