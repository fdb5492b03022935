// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

// Package inventory filters vSphere datastores down to those backed by the array.
package inventory

import (
	"github.com/hpe-storage/vsphere-host-libs/identifier"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

// DeviceIdentifiers returns the device names backing a datastore, deduplicated and in the
// order they were first reported.  VMFS datastores report their extent disk names.  vVol
// datastores report the first protocol endpoint of each host record only.
func DeviceIdentifiers(ds *model.Datastore) []string {
	var raw []string
	switch b := ds.Backing.(type) {
	case model.VmfsBacking:
		raw = b.Extents
	case *model.VmfsBacking:
		raw = b.Extents
	case model.VvolBacking:
		raw = firstEndpoints(b.HostProtocolEndpoints)
	case *model.VvolBacking:
		raw = firstEndpoints(b.HostProtocolEndpoints)
	}

	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func firstEndpoints(records []model.HostProtocolEndpoint) []string {
	var ids []string
	for _, pe := range records {
		if len(pe.DeviceIDs) > 0 {
			ids = append(ids, pe.DeviceIDs[0])
		}
	}
	return ids
}

// IsPureBacked returns true if any device behind the datastore is an array volume
func IsPureBacked(ds *model.Datastore) bool {
	for _, id := range DeviceIdentifiers(ds) {
		if identifier.IsPureDevice(id) {
			return true
		}
	}
	return false
}

// ListStorageBackedDatastores returns the array backed datastores in input order
func ListStorageBackedDatastores(all []*model.Datastore) []*model.Datastore {
	var result []*model.Datastore
	for _, ds := range all {
		if ds != nil && IsPureBacked(ds) {
			result = append(result, ds)
		}
	}
	return result
}
