// Copyright 2020 Hewlett Packard Enterprise Development LP

// Package config loads the connection settings of the array and vCenter from a YAML file
// and the environment.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpe-storage/vsphere-host-libs/flasharray"
	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/task"
)

const (
	// Environment overrides
	EnvArrayAddress  = "PURE_FA_ADDRESS"
	EnvArrayAPIToken = "PURE_FA_API_TOKEN"
	EnvArrayUsername = "PURE_FA_USERNAME"
	EnvArrayPassword = "PURE_FA_PASSWORD"
	EnvVCenterURL    = "VSPHERE_URL"
	EnvVCenterUser   = "VSPHERE_USERNAME"
	EnvVCenterPass   = "VSPHERE_PASSWORD"

	defaultFileName = "purevmware.yaml"
)

// FlashArray connection settings
type FlashArray struct {
	Address    string `yaml:"address"`
	APIToken   string `yaml:"api_token,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
	APIVersion string `yaml:"api_version,omitempty"`
	Insecure   bool   `yaml:"insecure,omitempty"`
}

// VCenter connection settings
type VCenter struct {
	URL        string `yaml:"url"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
	Insecure   bool   `yaml:"insecure,omitempty"`
	Datacenter string `yaml:"datacenter,omitempty"` // limits inventory searches, empty searches all
}

// Config is the content of purevmware.yaml
type Config struct {
	FlashArray  FlashArray    `yaml:"flasharray"`
	VCenter     VCenter       `yaml:"vcenter"`
	Log         log.LogParams `yaml:"log"`
	TaskTimeout time.Duration `yaml:"task_timeout,omitempty"`

	// Path the config was read from, empty when no file was found
	Path string `yaml:"-"`
}

// DefaultPaths returns the locations searched when no config file is given
func DefaultPaths() []string {
	paths := []string{defaultFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "purevmware", "config.yaml"))
	}
	return paths
}

// Load reads the config at path, or the first of DefaultPaths that exists when path is
// empty, then applies environment overrides.  A missing default file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, candidate := range DefaultPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	cfg := &Config{
		Log: log.LogParams{
			Level:      log.DefaultLogLevel,
			MaxFiles:   log.DefaultMaxLogFiles,
			MaxSizeMiB: log.DefaultMaxLogSize,
			Format:     log.DefaultLogFormat,
		},
	}
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config %s: %v", path, err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config %s: %v", path, err)
		}
		cfg.Path = path
	}

	cfg.applyEnv()
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = task.DefaultTimeout
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.FlashArray.Address, EnvArrayAddress)
	override(&c.FlashArray.APIToken, EnvArrayAPIToken)
	override(&c.FlashArray.Username, EnvArrayUsername)
	override(&c.FlashArray.Password, EnvArrayPassword)
	override(&c.VCenter.URL, EnvVCenterURL)
	override(&c.VCenter.Username, EnvVCenterUser)
	override(&c.VCenter.Password, EnvVCenterPass)
}

// ArrayCredentials validates the array settings
func (c *Config) ArrayCredentials() (*flasharray.Credentials, error) {
	return flasharray.CreateCredentials(map[string]string{
		"address":     c.FlashArray.Address,
		"api_token":   c.FlashArray.APIToken,
		"username":    c.FlashArray.Username,
		"password":    c.FlashArray.Password,
		"api_version": c.FlashArray.APIVersion,
		"insecure":    strconv.FormatBool(c.FlashArray.Insecure),
	})
}

// ValidateVCenter checks that vCenter can be reached with the settings
func (c *Config) ValidateVCenter() error {
	if c.VCenter.URL == "" {
		return fmt.Errorf("missing vcenter url, set it in the config file or %s", EnvVCenterURL)
	}
	if c.VCenter.Username == "" {
		return fmt.Errorf("missing vcenter username, set it in the config file or %s", EnvVCenterUser)
	}
	return nil
}
