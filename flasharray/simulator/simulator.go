// Copyright 2019 Hewlett Packard Enterprise Development LP

// Package simulator serves an in-memory subset of the FlashArray REST 1.x API.  It backs
// the flasharray client and provisioning workflow tests.
package simulator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/mux"
	uuid "github.com/satori/go.uuid"

	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

const (
	DefaultUsername = "pureuser"
	DefaultPassword = "pureuser"
	DefaultAPIToken = "6e1b7e3f-2b5c-4a8f-9d3e-simulator"

	sessionCookie = "session"

	// serials are this prefix followed by an 8 digit counter
	serialPrefix = "3B7B308D98F9425E"
)

// Route describes one simulated endpoint
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

type volume struct {
	model.ArrayVolume
	protocolEndpoint bool
}

// Simulator holds the array state.  All methods are safe for concurrent use.
type Simulator struct {
	mutex       sync.Mutex
	array       model.ArrayInfo
	username    string
	password    string
	apiToken    string
	sessions    map[string]struct{}
	hosts       []*model.ArrayHost
	interfaces  []*model.NetworkInterface
	volumes     []*volume
	connections map[string][]string // host group -> connected volume names
	serial      uint32
	log         *log.Logr
}

// New returns a simulator for the given array identity with default credentials
func New(array model.ArrayInfo, l *log.Logr) *Simulator {
	if l == nil {
		l = log.Discard()
	}
	return &Simulator{
		array:       array,
		username:    DefaultUsername,
		password:    DefaultPassword,
		apiToken:    DefaultAPIToken,
		sessions:    make(map[string]struct{}),
		connections: make(map[string][]string),
		log:         l,
	}
}

// AddHost adds an array host.  A non-empty HostGroup implicitly creates the group.
func (s *Simulator) AddHost(h model.ArrayHost) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.hosts = append(s.hosts, &h)
}

// AddNetworkInterface adds an array network interface
func (s *Simulator) AddNetworkInterface(n model.NetworkInterface) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.interfaces = append(s.interfaces, &n)
}

// AddProtocolEndpoint adds an existing protocol endpoint volume
func (s *Simulator) AddProtocolEndpoint(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.volumes = append(s.volumes, s.newVolume(name, 0, true))
}

// Volume returns a copy of the named volume
func (s *Simulator) Volume(name string) (model.ArrayVolume, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if v := s.findVolume(name); v != nil {
		return v.ArrayVolume, true
	}
	return model.ArrayVolume{}, false
}

// ProtocolEndpoints returns the names of all protocol endpoint volumes
func (s *Simulator) ProtocolEndpoints() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var names []string
	for _, v := range s.volumes {
		if v.protocolEndpoint {
			names = append(names, v.Name)
		}
	}
	return names
}

// Connections returns the volumes connected to a host group
func (s *Simulator) Connections(hostGroup string) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.connections[hostGroup]...)
}

// Start serves the simulator on a loopback listener.  The caller closes the server.
func (s *Simulator) Start() *httptest.Server {
	return httptest.NewServer(s.NewRouter())
}

// NewRouter creates a new mux.Router serving the simulated endpoints
func (s *Simulator) NewRouter() *mux.Router {
	routes := []Route{
		{Name: "ApiToken", Method: "POST", Pattern: "/api/{version}/auth/apitoken", HandlerFunc: s.createAPIToken},
		{Name: "Login", Method: "POST", Pattern: "/api/{version}/auth/session", HandlerFunc: s.createSession},
		{Name: "Logout", Method: "DELETE", Pattern: "/api/{version}/auth/session", HandlerFunc: s.authenticated(s.deleteSession)},
		{Name: "Array", Method: "GET", Pattern: "/api/{version}/array", HandlerFunc: s.authenticated(s.getArray)},
		{Name: "Network", Method: "GET", Pattern: "/api/{version}/network", HandlerFunc: s.authenticated(s.listNetwork)},
		{Name: "Hosts", Method: "GET", Pattern: "/api/{version}/host", HandlerFunc: s.authenticated(s.listHosts)},
		{Name: "HostGroups", Method: "GET", Pattern: "/api/{version}/hgroup", HandlerFunc: s.authenticated(s.listHostGroups)},
		{Name: "ConnectHostGroup", Method: "POST", Pattern: "/api/{version}/hgroup/{hgroup}/volume/{volume}", HandlerFunc: s.authenticated(s.connectHostGroup)},
		{Name: "Volumes", Method: "GET", Pattern: "/api/{version}/volume", HandlerFunc: s.authenticated(s.listVolumes)},
		{Name: "CreateVolume", Method: "POST", Pattern: "/api/{version}/volume/{volume}", HandlerFunc: s.authenticated(s.createVolume)},
	}

	router := mux.NewRouter().StrictSlash(true)
	for _, route := range routes {
		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(s.log.HTTPLogger(route.HandlerFunc, route.Name))
	}
	return router
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Authentication
///////////////////////////////////////////////////////////////////////////////////////////////////

func (s *Simulator) createAPIToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if req.Username != s.username || req.Password != s.password {
		writeError(w, http.StatusBadRequest, "", "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_token": s.apiToken})
}

func (s *Simulator) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIToken string `json:"api_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if req.APIToken != s.apiToken {
		writeError(w, http.StatusBadRequest, "", "invalid credentials")
		return
	}
	session := uuid.NewV4().String()
	s.sessions[session] = struct{}{}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: session, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"username": s.username})
}

func (s *Simulator) deleteSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.mutex.Lock()
		delete(s.sessions, c.Value)
		s.mutex.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": s.username})
}

func (s *Simulator) authenticated(inner http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(sessionCookie); err == nil {
			s.mutex.Lock()
			_, ok := s.sessions[c.Value]
			s.mutex.Unlock()
			if ok {
				inner(w, r)
				return
			}
		}
		writeError(w, http.StatusUnauthorized, "", "session not authenticated")
	}
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Array, network and host endpoints
///////////////////////////////////////////////////////////////////////////////////////////////////

func (s *Simulator) getArray(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	writeJSON(w, http.StatusOK, s.array)
}

func (s *Simulator) listNetwork(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.interfaces))
}

func (s *Simulator) listHosts(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.hosts))
}

func (s *Simulator) listHostGroups(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	writeJSON(w, http.StatusOK, s.hostGroups())
}

func (s *Simulator) hostGroups() []*model.ArrayHostGroup {
	groups := []*model.ArrayHostGroup{}
	index := make(map[string]*model.ArrayHostGroup)
	for _, h := range s.hosts {
		if h.HostGroup == "" {
			continue
		}
		g, ok := index[h.HostGroup]
		if !ok {
			g = &model.ArrayHostGroup{Name: h.HostGroup}
			index[h.HostGroup] = g
			groups = append(groups, g)
		}
		g.Hosts = append(g.Hosts, h.Name)
	}
	return groups
}

func (s *Simulator) connectHostGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	hgroup, name := vars["hgroup"], vars["volume"]

	s.mutex.Lock()
	defer s.mutex.Unlock()

	found := false
	for _, g := range s.hostGroups() {
		if g.Name == hgroup {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusBadRequest, hgroup, "Host group does not exist.")
		return
	}
	if s.findVolume(name) == nil {
		writeError(w, http.StatusBadRequest, name, "Volume does not exist.")
		return
	}
	for _, v := range s.connections[hgroup] {
		if v == name {
			writeError(w, http.StatusBadRequest, name, "Connection already exists.")
			return
		}
	}
	s.connections[hgroup] = append(s.connections[hgroup], name)
	writeJSON(w, http.StatusOK, map[string]interface{}{"name": hgroup, "vol": name, "lun": len(s.connections[hgroup])})
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Volume endpoints
///////////////////////////////////////////////////////////////////////////////////////////////////

func (s *Simulator) listVolumes(w http.ResponseWriter, r *http.Request) {
	pe := r.URL.Query().Get("protocol_endpoint") == "true"

	s.mutex.Lock()
	defer s.mutex.Unlock()
	volumes := []model.ArrayVolume{}
	for _, v := range s.volumes {
		if v.protocolEndpoint == pe {
			volumes = append(volumes, v.ArrayVolume)
		}
	}
	writeJSON(w, http.StatusOK, volumes)
}

func (s *Simulator) createVolume(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["volume"]
	var req struct {
		Size             uint64 `json:"size"`
		ProtocolEndpoint bool   `json:"protocol_endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, name, "invalid request body")
		return
	}
	if !req.ProtocolEndpoint && req.Size == 0 {
		writeError(w, http.StatusBadRequest, name, "Volume size must be specified.")
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.findVolume(name) != nil {
		writeError(w, http.StatusBadRequest, name, "Volume already exists.")
		return
	}
	v := s.newVolume(name, req.Size, req.ProtocolEndpoint)
	s.volumes = append(s.volumes, v)
	writeJSON(w, http.StatusOK, v.ArrayVolume)
}

func (s *Simulator) newVolume(name string, size uint64, pe bool) *volume {
	s.serial++
	return &volume{
		ArrayVolume: model.ArrayVolume{
			Name:    name,
			Serial:  fmt.Sprintf("%s%08X", serialPrefix, s.serial),
			Size:    size,
			Created: time.Now().UTC().Format(time.RFC3339),
		},
		protocolEndpoint: pe,
	}
}

func (s *Simulator) findVolume(name string) *volume {
	for _, v := range s.volumes {
		if v.Name == name {
			return v
		}
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Helpers
///////////////////////////////////////////////////////////////////////////////////////////////////

func nonNil(v interface{}) interface{} {
	switch list := v.(type) {
	case []*model.ArrayHost:
		if list == nil {
			return []*model.ArrayHost{}
		}
	case []*model.NetworkInterface:
		if list == nil {
			return []*model.NetworkInterface{}
		}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, ctx, msg string) {
	writeJSON(w, status, []map[string]string{{"ctx": ctx, "msg": msg}})
}
