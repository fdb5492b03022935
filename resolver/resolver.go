// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

// Package resolver maps vSphere hosts and clusters onto array hosts and host groups.
package resolver

import (
	"sort"
	"strings"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	"github.com/hpe-storage/vsphere-host-libs/identifier"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

const (
	errorMessageHostNotResolved = "unable to find host %s on array %s"
	errorMessageUngroupedHost   = "host %s (array host %s) is not a member of a host group on array %s"
	errorMessageNoHostGroup     = "no host group found for cluster %s on array %s"
	errorMessageSplitHostGroup  = "hosts in cluster %s belong to multiple host groups on array %s: %s"
)

// ResolveArrayHost returns the array host that owns one of the given host's adapters.
// Adapters are searched in the order reported by vSphere and, for each adapter, candidates
// in the order reported by the array.  The first match wins.
func ResolveArrayHost(host *model.VirtualizationHost, candidates []*model.ArrayHost, arrayName string) (*model.ArrayHost, error) {
	for _, adapter := range host.Adapters {
		for _, candidate := range candidates {
			if adapterMatches(adapter, candidate) {
				return candidate, nil
			}
		}
	}
	return nil, cerrors.Newf(cerrors.HostResolution, errorMessageHostNotResolved, host.Name, arrayName)
}

func adapterMatches(adapter model.HostAdapter, candidate *model.ArrayHost) bool {
	switch adapter.Kind {
	case model.AdapterFibreChannel:
		return containsFold(candidate.WWNs, identifier.FormatWWPN(adapter.PortWorldWideName))
	case model.AdapterISCSI:
		return adapter.IScsiName != "" && containsFold(candidate.IQNs, adapter.IScsiName)
	default:
		return false
	}
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// Unresolvable reports whether a host has to be left out of host group resolution.
// vCenter returns no storage configuration for a host that is not connected.
func Unresolvable(host *model.VirtualizationHost) bool {
	return !host.IsConnected() && len(host.Adapters) == 0
}

// ResolveHostGroupForCluster returns the single array host group that every host of the
// cluster belongs to.  Unresolvable hosts are skipped.
func ResolveHostGroupForCluster(cluster *model.Cluster, arrayHosts []*model.ArrayHost, arrayName string) (string, error) {
	groups := make(map[string]struct{})
	for _, host := range cluster.Hosts {
		if Unresolvable(host) {
			continue
		}
		arrayHost, err := ResolveArrayHost(host, arrayHosts, arrayName)
		if err != nil {
			return "", err
		}
		if arrayHost.HostGroup == "" {
			return "", cerrors.Newf(cerrors.UngroupedHost, errorMessageUngroupedHost, host.Name, arrayHost.Name, arrayName)
		}
		groups[arrayHost.HostGroup] = struct{}{}
	}

	switch len(groups) {
	case 0:
		return "", cerrors.Newf(cerrors.NoHostGroup, errorMessageNoHostGroup, cluster.Name, arrayName)
	case 1:
		for group := range groups {
			return group, nil
		}
	}

	names := make([]string, 0, len(groups))
	for group := range groups {
		names = append(names, group)
	}
	sort.Strings(names)
	return "", cerrors.Newf(cerrors.SplitHostGroup, errorMessageSplitHostGroup, cluster.Name, arrayName, strings.Join(names, ", "))
}
