// Copyright 2020 Hewlett Packard Enterprise Development LP

package storagemonitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"

	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/model"
	"github.com/hpe-storage/vsphere-host-libs/task"
)

const envelopeFormat = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<soapenv:Body>%s</soapenv:Body>
</soapenv:Envelope>`

// smsService answers the monitoring service methods with canned bodies
type smsService struct {
	mutex      sync.Mutex
	states     []string
	polls      int
	registered []string
}

func (s *smsService) handle(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := string(data)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var body string
	switch {
	case strings.Contains(req, "<QueryStorageManager "):
		body = `<QueryStorageManagerResponse xmlns="urn:sms"><returnval type="SmsStorageManager">SmsStorageManager</returnval></QueryStorageManagerResponse>`
	case strings.Contains(req, "<QueryStorageContainer "):
		body = `<QueryStorageContainerResponse xmlns="urn:sms"><returnval>` +
			`<storageContainer><uuid>vvol:0a0a0a0a0a0a0a0a-0a0a0a0a0a0a0a0a</uuid><name>other</name><maxVvolSizeInMB>0</maxVvolSizeInMB>` +
			`<providerId>provider-2</providerId><arrayId>com.other:11111111</arrayId></storageContainer>` +
			`<storageContainer><uuid>vvol:3b7b308d98f9425e-87a13e57ada49658</uuid><name>pure</name><maxVvolSizeInMB>0</maxVvolSizeInMB>` +
			`<providerId>provider-1</providerId><arrayId>com.purestorage:2f1b8f8e-7a52-4d7b-9a6c-0c6b2f0d7f11</arrayId></storageContainer>` +
			`</returnval></QueryStorageContainerResponse>`
	case strings.Contains(req, "<QueryProviderInfo "):
		body = `<QueryProviderInfoResponse xmlns="urn:sms"><returnval xsi:type="VasaProviderInfo">` +
			`<uid>5b0f1e3c</uid><name>flasharray-m20-ct0</name><version>3.0</version>` +
			`<url>https://10.21.88.5:8084/version.xml</url></returnval></QueryProviderInfoResponse>`
	case strings.Contains(req, "<QueryProvider "):
		body = `<QueryProviderResponse xmlns="urn:sms"><returnval type="VasaProvider">provider-1</returnval></QueryProviderResponse>`
	case strings.Contains(req, "<RegisterProvider_Task "):
		s.registered = append(s.registered, req)
		body = `<RegisterProvider_TaskResponse xmlns="urn:sms"><returnval type="SmsTask">SmsTask-7</returnval></RegisterProvider_TaskResponse>`
	case strings.Contains(req, "<QuerySmsTaskInfo "):
		state := s.states[len(s.states)-1]
		if s.polls < len(s.states) {
			state = s.states[s.polls]
		}
		s.polls++
		body = fmt.Sprintf(`<QuerySmsTaskInfoResponse xmlns="urn:sms"><returnval>`+
			`<key>SmsTask-7</key><task type="SmsTask">SmsTask-7</task><state>%s</state>`+
			`</returnval></QuerySmsTaskInfoResponse>`, state)
	default:
		http.Error(w, "unexpected request", http.StatusNotImplemented)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	fmt.Fprintf(w, envelopeFormat, body)
}

func newTestClient(t *testing.T, svc *smsService) *Client {
	router := mux.NewRouter()
	router.HandleFunc(servicePath, svc.handle).Methods(http.MethodPost)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL + "/sdk")
	require.NoError(t, err)
	vc := &vim25.Client{Client: soap.NewClient(u, true)}

	c, err := NewClient(context.Background(), vc, log.Discard())
	require.NoError(t, err)
	assert.Equal(t, "SmsStorageManager", c.storageManager.Value)
	return c
}

func TestQueryStorageContainers(t *testing.T) {
	c := newTestClient(t, &smsService{})

	containers, err := c.QueryStorageContainers(context.Background())
	require.NoError(t, err)
	require.Len(t, containers, 2)
	assert.Equal(t, "pure", containers[1].Name)
	assert.Equal(t, []string{"provider-1"}, containers[1].ProviderIDs)
	assert.True(t, containers[1].BackedByArray("2f1b8f8e-7a52-4d7b-9a6c-0c6b2f0d7f11"))
	assert.False(t, containers[0].BackedByArray("2f1b8f8e-7a52-4d7b-9a6c-0c6b2f0d7f11"))
}

func TestQueryProviders(t *testing.T) {
	c := newTestClient(t, &smsService{})

	providers, err := c.QueryProviders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []*model.StorageProvider{{
		Ref:     "provider-1",
		UID:     "5b0f1e3c",
		Name:    "flasharray-m20-ct0",
		Version: "3.0",
		URL:     "https://10.21.88.5:8084/version.xml",
	}}, providers)
}

func TestRegisterProvider(t *testing.T) {
	tests := []struct {
		name   string
		states []string
		polls  int
	}{
		{"completes immediately", []string{"success"}, 1},
		{"running then success", []string{"queued", "running", "success"}, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &smsService{states: tc.states}
			c := newTestClient(t, svc)

			st, err := c.RegisterProvider(context.Background(), &model.StorageProviderSpec{
				Name:     "flasharray-m20-ct0",
				URL:      "https://10.21.88.5:8084/version.xml",
				Username: "pureuser",
				Password: "pureuser",
			})
			require.NoError(t, err)
			require.Len(t, svc.registered, 1)
			assert.Contains(t, svc.registered[0], "<url>https://10.21.88.5:8084/version.xml</url>")
			assert.Contains(t, svc.registered[0], "<name>flasharray-m20-ct0</name>")

			info, err := task.NewMonitor(nil, task.WithPollInterval(time.Millisecond)).WaitForCompletion(context.Background(), st, task.DefaultTimeout)
			require.NoError(t, err)
			assert.Equal(t, "SmsTask-7", info.Key)
			assert.Equal(t, model.TaskStateSuccess, info.State)
			assert.Equal(t, tc.polls, svc.polls)
		})
	}
}
