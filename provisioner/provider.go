// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

package provisioner

import (
	"context"
	"fmt"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

const (
	// DefaultProviderUsername is the array account used when a request names none
	DefaultProviderUsername = "pureuser"
	// DefaultProviderPassword is the factory password of DefaultProviderUsername
	DefaultProviderPassword = "pureuser"

	providerURLFormat  = "https://%s:8084/version.xml"
	providerNameFormat = "%s-%s"
)

const (
	errorMessageControllerNotFound = "no controller interface with address %s on %s"
	errorMessageProviderNotFound   = "storage provider %s is not registered"
)

// ProviderRequest : VASA provider registration for one array controller
type ProviderRequest struct {
	Address  string // management address of the controller
	Username string
	Password string
}

// RegisterStorageProvider registers the VASA provider running on the controller that owns
// the given address and waits for the registration task.
func (p *Provisioner) RegisterStorageProvider(ctx context.Context, req *ProviderRequest) (provider *model.StorageProvider, err error) {
	ctx, l, done := p.begin(ctx, WorkflowRegisterProvider, log.Fields{"address": req.Address})
	defer func() { done(err) }()

	if p.monitor == nil {
		return nil, cerrors.Newf(cerrors.InvalidArgument, errorMessageNoMonitor)
	}

	array, err := p.array.Get(ctx)
	if err != nil {
		return nil, err
	}
	interfaces, err := p.array.ListNetworkInterfaces(ctx)
	if err != nil {
		return nil, err
	}

	var controller string
	for _, ni := range interfaces {
		if !ni.IsVirtual() && ni.Address == req.Address {
			controller = ni.Controller()
			break
		}
	}
	if controller == "" {
		return nil, cerrors.Newf(cerrors.ControllerNotFound, errorMessageControllerNotFound, req.Address, array.ArrayName)
	}

	spec := &model.StorageProviderSpec{
		Name:     fmt.Sprintf(providerNameFormat, array.ArrayName, controller),
		URL:      fmt.Sprintf(providerURLFormat, req.Address),
		Username: req.Username,
		Password: req.Password,
	}
	if spec.Username == "" {
		spec.Username = DefaultProviderUsername
	}
	if spec.Password == "" {
		spec.Password = DefaultProviderPassword
	}
	l.Infof("registering storage provider %s at %s", spec.Name, spec.URL)

	t, err := p.monitor.RegisterProvider(ctx, spec)
	if err != nil {
		return nil, err
	}
	if _, err = p.taskMonitor.WaitForCompletion(ctx, t, p.taskTimeout); err != nil {
		return nil, err
	}

	return p.findProvider(ctx, spec.URL)
}

// GetStorageProvider returns the registered provider with the given URL
func (p *Provisioner) GetStorageProvider(ctx context.Context, url string) (*model.StorageProvider, error) {
	if p.monitor == nil {
		return nil, cerrors.Newf(cerrors.InvalidArgument, errorMessageNoMonitor)
	}
	return p.findProvider(ctx, url)
}

func (p *Provisioner) findProvider(ctx context.Context, url string) (*model.StorageProvider, error) {
	providers, err := p.monitor.QueryProviders(ctx)
	if err != nil {
		return nil, err
	}
	for _, provider := range providers {
		if provider.URL == url {
			return provider, nil
		}
	}
	return nil, cerrors.Newf(cerrors.ProviderNotFound, errorMessageProviderNotFound, url)
}
