// Copyright 2019 Hewlett Packard Enterprise Development LP

// Package flasharray is a client for the FlashArray REST 1.x API, limited to the calls
// needed to provision datastores for vSphere clusters.
package flasharray

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

const (
	// Authentication Endpoints
	apiTokenURI = "/auth/apitoken" // api/{version}/auth/apitoken
	sessionURI  = "/auth/session"  // api/{version}/auth/session

	// Array Endpoints
	arrayURI   = "/array"   // api/{version}/array
	networkURI = "/network" // api/{version}/network

	// Host Endpoints
	hostURI         = "/host"                // api/{version}/host
	hgroupURI       = "/hgroup"              // api/{version}/hgroup
	hgroupVolumeURI = "/hgroup/%s/volume/%s" // api/{version}/hgroup/{hgroup}/volume/{volume}

	// Volume Endpoints
	volumeURI     = "/volume"    // api/{version}/volume
	volumeNameURI = "/volume/%s" // api/{version}/volume/{volume}
)

const (
	// Query Parameters
	queryProtocolEndpoint = "protocol_endpoint" // e.g. api/1.17/volume?protocol_endpoint=true
)

const (
	defaultTimeout = 60 * time.Second

	errorMessageAlreadyExists = "already exists"
)

// APIError is one entry of the error list returned by the array
type APIError struct {
	Msg string `json:"msg"`
	Ctx string `json:"ctx,omitempty"`
}

// Client talks to one array.  It holds an authenticated REST session.
type Client struct {
	credentials *Credentials
	baseURL     string
	httpClient  *http.Client
	log         *log.Logr
}

// NewClient creates a client and opens a REST session on the array
func NewClient(ctx context.Context, credentials *Credentials, l *log.Logr) (*Client, error) {
	if l == nil {
		l = log.Discard()
	}
	l.Tracef(">>>>> NewClient called, credentials=%v", log.MapScrubber(credentials.ToMap()))
	defer l.Trace("<<<<< NewClient")

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	version := credentials.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	c := &Client{
		credentials: credentials,
		baseURL:     baseURL(credentials.Address, version),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: credentials.Insecure}, // nolint: gosec
			},
		},
		log: l,
	}

	if err = c.login(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func baseURL(address, version string) string {
	address = strings.TrimSuffix(address, "/")
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "https://" + address
	}
	return fmt.Sprintf("%s/api/%s", address, version)
}

// login exchanges the credentials for an API token if needed and opens a session.  The
// session cookie is kept by the client's cookie jar.
func (c *Client) login(ctx context.Context) error {
	token := c.credentials.APIToken
	if token == "" {
		var resp struct {
			APIToken string `json:"api_token"`
		}
		payload := map[string]string{"username": c.credentials.Username, "password": c.credentials.Password}
		if err := c.doJSON(ctx, http.MethodPost, apiTokenURI, nil, payload, &resp); err != nil {
			return err
		}
		token = resp.APIToken
	}

	var session struct {
		Username string `json:"username"`
	}
	if err := c.doJSON(ctx, http.MethodPost, sessionURI, nil, map[string]string{"api_token": token}, &session); err != nil {
		return err
	}
	c.log.Debugf("opened session on %s as %s", c.credentials.Address, session.Username)
	return nil
}

// Logout closes the REST session
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, sessionURI, nil, nil, nil)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Array methods
///////////////////////////////////////////////////////////////////////////////////////////////////

// Get returns the array identity
func (c *Client) Get(ctx context.Context) (array *model.ArrayInfo, err error) {
	c.log.Trace(">>>>> Get called")
	defer c.log.Trace("<<<<< Get")

	if err = c.doJSON(ctx, http.MethodGet, arrayURI, nil, nil, &array); err != nil {
		return nil, err
	}
	return array, nil
}

// ListNetworkInterfaces returns the array network interfaces
func (c *Client) ListNetworkInterfaces(ctx context.Context) (interfaces []*model.NetworkInterface, err error) {
	c.log.Trace(">>>>> ListNetworkInterfaces called")
	defer c.log.Trace("<<<<< ListNetworkInterfaces")

	if err = c.doJSON(ctx, http.MethodGet, networkURI, nil, nil, &interfaces); err != nil {
		return nil, err
	}
	return interfaces, nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Host methods
///////////////////////////////////////////////////////////////////////////////////////////////////

// ListHosts returns every host configured on the array
func (c *Client) ListHosts(ctx context.Context) (hosts []*model.ArrayHost, err error) {
	c.log.Trace(">>>>> ListHosts called")
	defer c.log.Trace("<<<<< ListHosts")

	if err = c.doJSON(ctx, http.MethodGet, hostURI, nil, nil, &hosts); err != nil {
		return nil, err
	}
	return hosts, nil
}

// ListHostGroups returns every host group configured on the array
func (c *Client) ListHostGroups(ctx context.Context) (groups []*model.ArrayHostGroup, err error) {
	c.log.Trace(">>>>> ListHostGroups called")
	defer c.log.Trace("<<<<< ListHostGroups")

	if err = c.doJSON(ctx, http.MethodGet, hgroupURI, nil, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ConnectHostGroup connects a volume to every host of a host group
func (c *Client) ConnectHostGroup(ctx context.Context, hostGroup, volumeName string) error {
	c.log.Tracef(">>>>> ConnectHostGroup called, hostGroup=%s volume=%s", hostGroup, volumeName)
	defer c.log.Trace("<<<<< ConnectHostGroup")

	path := fmt.Sprintf(hgroupVolumeURI, url.PathEscape(hostGroup), url.PathEscape(volumeName))
	return c.doJSON(ctx, http.MethodPost, path, nil, nil, nil)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Volume methods
///////////////////////////////////////////////////////////////////////////////////////////////////

// CreateVolume creates a volume of sizeBytes
func (c *Client) CreateVolume(ctx context.Context, name string, sizeBytes uint64) (volume *model.ArrayVolume, err error) {
	c.log.Tracef(">>>>> CreateVolume called, name=%s size=%d", name, sizeBytes)
	defer c.log.Trace("<<<<< CreateVolume")

	payload := map[string]interface{}{"size": sizeBytes}
	if err = c.doJSON(ctx, http.MethodPost, fmt.Sprintf(volumeNameURI, url.PathEscape(name)), nil, payload, &volume); err != nil {
		return nil, err
	}
	return volume, nil
}

// CreateConglomerateVolume creates a protocol endpoint volume
func (c *Client) CreateConglomerateVolume(ctx context.Context, name string) (volume *model.ArrayVolume, err error) {
	c.log.Tracef(">>>>> CreateConglomerateVolume called, name=%s", name)
	defer c.log.Trace("<<<<< CreateConglomerateVolume")

	payload := map[string]interface{}{queryProtocolEndpoint: true}
	if err = c.doJSON(ctx, http.MethodPost, fmt.Sprintf(volumeNameURI, url.PathEscape(name)), nil, payload, &volume); err != nil {
		return nil, err
	}
	return volume, nil
}

// ListVolumes returns regular volumes, or protocol endpoints when protocolEndpoint is true
func (c *Client) ListVolumes(ctx context.Context, protocolEndpoint bool) (volumes []*model.ArrayVolume, err error) {
	c.log.Tracef(">>>>> ListVolumes called, protocolEndpoint=%v", protocolEndpoint)
	defer c.log.Trace("<<<<< ListVolumes")

	var query url.Values
	if protocolEndpoint {
		query = url.Values{queryProtocolEndpoint: []string{"true"}}
	}
	if err = c.doJSON(ctx, http.MethodGet, volumeURI, query, nil, &volumes); err != nil {
		return nil, err
	}
	return volumes, nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Transport
///////////////////////////////////////////////////////////////////////////////////////////////////

// doJSON submits a request with an optional JSON payload and decodes the JSON response into
// response, when non-nil.  Array error lists are converted to coded errors.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload, response interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target = target + "?" + query.Encode()
	}

	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "unable to encode request for %s %s", method, path)
		}
		body = bytes.NewBuffer(b)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return errors.Wrapf(err, "unable to build request %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request %s %s failed", method, path)
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "unable to read response of %s %s", method, path)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(method, path, resp.StatusCode, data)
	}

	if response != nil && len(data) > 0 {
		if err = json.Unmarshal(data, response); err != nil {
			return errors.Wrapf(err, "unable to decode response of %s %s", method, path)
		}
	}
	return nil
}

func responseError(method, path string, status int, data []byte) error {
	var apiErrors []APIError
	msg := http.StatusText(status)
	if err := json.Unmarshal(data, &apiErrors); err == nil && len(apiErrors) > 0 {
		var parts []string
		for _, e := range apiErrors {
			if e.Ctx != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", e.Ctx, e.Msg))
			} else {
				parts = append(parts, e.Msg)
			}
		}
		msg = strings.Join(parts, "; ")
	}

	code := cerrors.Internal
	switch {
	case status == http.StatusNotFound:
		code = cerrors.NotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = cerrors.InvalidArgument
	case strings.Contains(strings.ToLower(msg), errorMessageAlreadyExists):
		code = cerrors.AlreadyExists
	}
	return cerrors.Newf(code, "%s %s returned %d: %s", method, path, status, msg)
}
