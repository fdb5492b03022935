// Copyright 2020 Hewlett Packard Enterprise Development LP

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags
var Version = "dev"

var (
	cfgFile  string
	logLevel string
	logFile  string
	tracing  bool
)

var rootCmd = &cobra.Command{
	Use:   "purevmware",
	Short: "Provision FlashArray backed datastores for vSphere clusters",
	Long: `purevmware creates VMFS and vVol datastores on FlashArray storage for vSphere
clusters, after checking that every host of the cluster maps onto a single array
host group.

Connection settings are read from purevmware.yaml or
$HOME/.config/purevmware/config.yaml and can be overridden with PURE_FA_* and
VSPHERE_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./purevmware.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&tracing, "trace", false, "send workflow spans to jaeger")

	rootCmd.AddCommand(datastoresCmd)
	rootCmd.AddCommand(verifyClusterCmd)
	rootCmd.AddCommand(createVmfsCmd)
	rootCmd.AddCommand(createVvolCmd)
	rootCmd.AddCommand(registerProviderCmd)
	rootCmd.AddCommand(rescanCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
