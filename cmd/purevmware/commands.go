// Copyright 2020 Hewlett Packard Enterprise Development LP

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hpe-storage/vsphere-host-libs/conversion"
	"github.com/hpe-storage/vsphere-host-libs/inventory"
	"github.com/hpe-storage/vsphere-host-libs/model"
	"github.com/hpe-storage/vsphere-host-libs/provisioner"
)

var datastoresCmd = &cobra.Command{
	Use:   "datastores",
	Short: "List datastores backed by FlashArray devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())

		stores, err := s.provisioner.ListPureDatastores(cmd.Context())
		if err != nil {
			return err
		}
		printDatastores(stores)
		return nil
	},
}

var verifyClusterCmd = &cobra.Command{
	Use:   "verify-cluster <cluster>",
	Short: "Check that a cluster maps onto a single array host group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())

		cc, err := s.provisioner.VerifyCluster(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		names := make([]string, 0, len(cc.ConnectedHosts))
		for _, h := range cc.ConnectedHosts {
			names = append(names, h.Name)
		}
		fmt.Printf("Cluster:         %s\n", cc.Cluster.Name)
		fmt.Printf("Array:           %s (%s)\n", cc.Array.ArrayName, cc.Array.ID)
		fmt.Printf("Host group:      %s\n", cc.HostGroup)
		fmt.Printf("Connected hosts: %d of %d (%s)\n", len(cc.ConnectedHosts), len(cc.Cluster.Hosts), strings.Join(names, ", "))

		groups, err := s.array.ListHostGroups(cmd.Context())
		if err != nil {
			return err
		}
		for _, g := range groups {
			if g.Name == cc.HostGroup {
				fmt.Printf("Array hosts:     %s\n", strings.Join(g.Hosts, ", "))
			}
		}
		return nil
	},
}

var createVmfsCmd = &cobra.Command{
	Use:   "create-vmfs",
	Short: "Create a VMFS datastore on a new array volume",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		cluster, _ := flags.GetString("cluster")
		name, _ := flags.GetString("name")
		sizeFlag, _ := flags.GetString("size")
		version, _ := flags.GetInt32("vmfs-version")

		size, err := conversion.ParseSize(sizeFlag)
		if err != nil {
			return err
		}

		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())

		ds, err := s.provisioner.CreateBlockDatastore(cmd.Context(), &provisioner.BlockDatastoreRequest{
			ClusterName:   cluster,
			Name:          name,
			SizeBytes:     size,
			FormatVersion: version,
		})
		if err != nil {
			return err
		}
		printDatastores([]*model.Datastore{ds})
		return nil
	},
}

var createVvolCmd = &cobra.Command{
	Use:   "create-vvol",
	Short: "Mount the array storage container as a vVol datastore",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		cluster, _ := flags.GetString("cluster")
		name, _ := flags.GetString("name")
		peName, _ := flags.GetString("pe-name")

		s, err := openSession(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())

		ds, err := s.provisioner.CreatePoolDatastore(cmd.Context(), &provisioner.PoolDatastoreRequest{
			ClusterName:          cluster,
			Name:                 name,
			ProtocolEndpointName: peName,
		})
		if err != nil {
			return err
		}
		printDatastores([]*model.Datastore{ds})
		return nil
	},
}

var registerProviderCmd = &cobra.Command{
	Use:   "register-provider",
	Short: "Register the VASA provider of an array controller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		address, _ := flags.GetString("address")
		username, _ := flags.GetString("username")
		password, _ := flags.GetString("password")

		s, err := openSession(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())

		provider, err := s.provisioner.RegisterStorageProvider(cmd.Context(), &provisioner.ProviderRequest{
			Address:  address,
			Username: username,
			Password: password,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Registered %s (%s) at %s\n", provider.Name, provider.UID, provider.URL)
		return nil
	},
}

var rescanCmd = &cobra.Command{
	Use:   "rescan <cluster>",
	Short: "Rescan the storage adapters of every connected host of a cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())

		return s.provisioner.RescanStorage(cmd.Context(), args[0])
	},
}

func init() {
	createVmfsCmd.Flags().String("cluster", "", "vSphere cluster name")
	createVmfsCmd.Flags().String("name", "", "datastore and volume name")
	createVmfsCmd.Flags().String("size", "1TiB", "volume size, e.g. 500GiB or 2TiB")
	createVmfsCmd.Flags().Int32("vmfs-version", 0, "VMFS major version (default is the vCenter default)")
	_ = createVmfsCmd.MarkFlagRequired("cluster")
	_ = createVmfsCmd.MarkFlagRequired("name")

	createVvolCmd.Flags().String("cluster", "", "vSphere cluster name")
	createVvolCmd.Flags().String("name", "", "datastore name")
	createVvolCmd.Flags().String("pe-name", provisioner.DefaultProtocolEndpointName, "protocol endpoint to create when the array has none")
	_ = createVvolCmd.MarkFlagRequired("cluster")
	_ = createVvolCmd.MarkFlagRequired("name")

	registerProviderCmd.Flags().String("address", "", "controller management address")
	registerProviderCmd.Flags().String("username", "", "array user for the provider (default pureuser)")
	registerProviderCmd.Flags().String("password", "", "password of the array user")
	_ = registerProviderCmd.MarkFlagRequired("address")
}

func printDatastores(stores []*model.Datastore) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tCAPACITY\tFREE\tDEVICES")
	for _, ds := range stores {
		kind := "-"
		if ds.Backing != nil {
			kind = string(ds.Backing.Type())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			ds.Name, kind,
			conversion.FormatSize(ds.Capacity), conversion.FormatSize(ds.FreeSpace),
			strings.Join(inventory.DeviceIdentifiers(ds), ","))
	}
	w.Flush()
}
