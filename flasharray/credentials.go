// Copyright 2019 Hewlett Packard Enterprise Development LP

package flasharray

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const (
	addressKey    = "address"
	apiTokenKey   = "api_token"
	usernameKey   = "username"
	passwordKey   = "password"
	apiVersionKey = "api_version"
	insecureKey   = "insecure"

	// DefaultAPIVersion of the array REST 1.x API
	DefaultAPIVersion = "1.17"
)

// Credentials to reach and authenticate against an array
type Credentials struct {
	Address    string `mapstructure:"address"`     // Management address, optionally with http(s):// scheme
	APIToken   string `mapstructure:"api_token"`   // Preferred over username/password when set
	Username   string `mapstructure:"username"`    //
	Password   string `mapstructure:"password"`    //
	APIVersion string `mapstructure:"api_version"` // Defaults to DefaultAPIVersion
	Insecure   bool   `mapstructure:"insecure"`    // Skip TLS certificate verification
}

// CreateCredentials builds Credentials from a secrets map.  An address and either an API
// token or a username and password are required.
func CreateCredentials(secrets map[string]string) (*Credentials, error) {
	credentials := &Credentials{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           credentials,
	})
	if err != nil {
		return nil, err
	}
	if err = decoder.Decode(secrets); err != nil {
		return nil, fmt.Errorf("invalid array credentials: %v", err)
	}

	if credentials.Address == "" {
		return nil, fmt.Errorf("missing %s in array credentials", addressKey)
	}
	if credentials.APIToken == "" && (credentials.Username == "" || credentials.Password == "") {
		return nil, fmt.Errorf("array credentials require %s or both %s and %s", apiTokenKey, usernameKey, passwordKey)
	}
	if credentials.APIVersion == "" {
		credentials.APIVersion = DefaultAPIVersion
	}
	return credentials, nil
}

// ToMap is the inverse of CreateCredentials
func (c *Credentials) ToMap() map[string]string {
	m := map[string]string{
		addressKey:    c.Address,
		apiVersionKey: c.APIVersion,
		insecureKey:   fmt.Sprintf("%v", c.Insecure),
	}
	if c.APIToken != "" {
		m[apiTokenKey] = c.APIToken
	}
	if c.Username != "" {
		m[usernameKey] = c.Username
		m[passwordKey] = c.Password
	}
	return m
}
