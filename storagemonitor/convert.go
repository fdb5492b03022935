// Copyright 2020 Hewlett Packard Enterprise Development LP

package storagemonitor

import (
	smstypes "github.com/vmware/govmomi/sms/types"
	vimtypes "github.com/vmware/govmomi/vim25/types"

	"github.com/hpe-storage/vsphere-host-libs/model"
)

func convertContainer(sc *smstypes.StorageContainer) *model.StorageContainer {
	return &model.StorageContainer{
		UUID:        sc.Uuid,
		Name:        sc.Name,
		ArrayIDs:    sc.ArrayId,
		ProviderIDs: sc.ProviderId,
	}
}

func convertProvider(ref vimtypes.ManagedObjectReference, info smstypes.BaseSmsProviderInfo) *model.StorageProvider {
	p := &model.StorageProvider{Ref: ref.Value}
	if info == nil {
		return p
	}
	base := info.GetSmsProviderInfo()
	p.UID = base.Uid
	p.Name = base.Name
	p.Version = base.Version
	if vasa, ok := info.(*smstypes.VasaProviderInfo); ok {
		p.URL = vasa.Url
	}
	return p
}

func convertTaskInfo(key string, info *smstypes.SmsTaskInfo) *model.TaskInfo {
	t := &model.TaskInfo{
		Key:    key,
		State:  model.TaskState(info.State),
		Result: info.Result,
	}
	if info.Error != nil {
		t.Error = info.Error.LocalizedMessage
	}
	return t
}
