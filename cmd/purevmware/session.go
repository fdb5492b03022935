// Copyright 2020 Hewlett Packard Enterprise Development LP

package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh/terminal"

	"github.com/hpe-storage/vsphere-host-libs/config"
	"github.com/hpe-storage/vsphere-host-libs/flasharray"
	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/provisioner"
	"github.com/hpe-storage/vsphere-host-libs/storagemonitor"
	"github.com/hpe-storage/vsphere-host-libs/vsphere"
)

// session holds the open connections of one command
type session struct {
	log         *log.Logr
	array       *flasharray.Client
	vc          *vsphere.Client
	provisioner *provisioner.Provisioner
}

// openSession logs in to the array and vCenter.  The storage monitoring service is only
// opened when withMonitor is set.
func openSession(ctx context.Context, withMonitor bool) (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	l, err := log.InitLogging(logFile, &cfg.Log, true, tracing)
	if err != nil {
		return nil, err
	}
	l.Debugf("invoked as %s %v", os.Args[0], log.Scrubber(os.Args[1:]))
	if cfg.Path != "" {
		l.Debugf("loaded config from %s", cfg.Path)
	}

	if err = cfg.ValidateVCenter(); err != nil {
		return nil, err
	}
	if cfg.FlashArray.APIToken == "" && cfg.FlashArray.Username != "" && cfg.FlashArray.Password == "" {
		if cfg.FlashArray.Password, err = promptPassword("FlashArray password for %s: ", cfg.FlashArray.Username); err != nil {
			return nil, err
		}
	}
	if cfg.VCenter.Password == "" {
		if cfg.VCenter.Password, err = promptPassword("vCenter password for %s: ", cfg.VCenter.Username); err != nil {
			return nil, err
		}
	}

	creds, err := cfg.ArrayCredentials()
	if err != nil {
		return nil, err
	}
	l.Debugf("array credentials %v", log.MapScrubber(creds.ToMap()))
	s := &session{log: l}
	if s.array, err = flasharray.NewClient(ctx, creds, l); err != nil {
		return nil, err
	}
	if s.vc, err = vsphere.Dial(ctx, cfg.VCenter.URL, cfg.VCenter.Username, cfg.VCenter.Password, cfg.VCenter.Insecure, l); err != nil {
		s.close(ctx)
		return nil, err
	}
	if cfg.VCenter.Datacenter != "" {
		if err = s.vc.UseDatacenter(ctx, cfg.VCenter.Datacenter); err != nil {
			s.close(ctx)
			return nil, err
		}
	}

	var monitor provisioner.StorageMonitor
	if withMonitor {
		sms, err := storagemonitor.NewClient(ctx, s.vc.VimClient(), l)
		if err != nil {
			s.close(ctx)
			return nil, err
		}
		monitor = sms
	}

	s.provisioner = provisioner.New(s.array, s.vc, monitor,
		provisioner.WithLogger(l),
		provisioner.WithTaskTimeout(cfg.TaskTimeout),
	)
	return s, nil
}

func (s *session) close(ctx context.Context) {
	if s.vc != nil {
		if err := s.vc.Logout(ctx); err != nil {
			s.log.Warnf("vCenter logout failed: %v", err)
		}
	}
	if s.array != nil {
		if err := s.array.Logout(ctx); err != nil {
			s.log.Warnf("array logout failed: %v", err)
		}
	}
	s.log.Close()
}

func promptPassword(format string, a ...interface{}) (string, error) {
	fd := int(os.Stdin.Fd())
	if !terminal.IsTerminal(fd) {
		return "", fmt.Errorf("password required and stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, format, a...)
	b, err := terminal.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
