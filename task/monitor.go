// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

// Package task waits for asynchronous backend operations to reach a terminal state.
package task

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
	log "github.com/hpe-storage/vsphere-host-libs/logger"
	"github.com/hpe-storage/vsphere-host-libs/metrics"
	"github.com/hpe-storage/vsphere-host-libs/model"
)

const (
	// DefaultPollInterval between two status queries
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultTimeout for a backend task to complete
	DefaultTimeout = 30 * time.Second
)

const (
	errorMessageTaskTimeout = "task %s did not complete within %v, last state %s"
	errorMessageTaskFailed  = "task %s failed"
)

// StatusQuerier returns the current status of one backend task
type StatusQuerier interface {
	QueryTaskInfo(ctx context.Context) (*model.TaskInfo, error)
}

// Monitor polls tasks on a fixed interval.  It never cancels the remote task.
type Monitor struct {
	clock    clockwork.Clock
	interval time.Duration
	log      *log.Logr
}

// Option configures a Monitor
type Option func(*Monitor)

// WithClock replaces the wall clock, used by tests
func WithClock(c clockwork.Clock) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewMonitor returns a Monitor logging to l
func NewMonitor(l *log.Logr, opts ...Option) *Monitor {
	if l == nil {
		l = log.Discard()
	}
	m := &Monitor{
		clock:    clockwork.NewRealClock(),
		interval: DefaultPollInterval,
		log:      l,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WaitForCompletion polls the task until it succeeds, fails or the timeout elapses.  A
// failed task returns TaskFailed wrapping the backend reported cause.  ctx only bounds the
// individual status queries; the wait itself is bounded by timeout.
func (m *Monitor) WaitForCompletion(ctx context.Context, task StatusQuerier, timeout time.Duration) (*model.TaskInfo, error) {
	m.log.Trace(">>>>> WaitForCompletion called")
	defer m.log.Trace("<<<<< WaitForCompletion")

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := m.clock.Now()
	for {
		metrics.TaskPollsTotal.Inc()
		info, err := task.QueryTaskInfo(ctx)
		if err != nil {
			return nil, err
		}

		switch info.State {
		case model.TaskStateSuccess:
			m.log.Debugf("task %s completed after %v", info.Key, m.clock.Since(start))
			return info, nil
		case model.TaskStateError:
			m.log.Errorf("task %s failed: %s", info.Key, info.Error)
			return info, cerrors.Wrapf(cerrors.TaskFailed, taskError(info), errorMessageTaskFailed, info.Key)
		}

		m.clock.Sleep(m.interval)
		if m.clock.Since(start) > timeout {
			metrics.TaskTimeoutsTotal.Inc()
			return info, cerrors.Newf(cerrors.Timeout, errorMessageTaskTimeout, info.Key, timeout, info.State)
		}
	}
}

type backendError string

func (e backendError) Error() string { return string(e) }

func taskError(info *model.TaskInfo) error {
	if info.Error == "" {
		return backendError("no error reported by backend")
	}
	return backendError(info.Error)
}
