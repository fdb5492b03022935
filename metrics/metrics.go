// Copyright 2020 Hewlett Packard Enterprise Development LP

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hpe-storage/vsphere-host-libs/cerrors"
)

var (
	// Workflow metrics
	WorkflowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purevmware_workflows_total",
			Help: "Total number of provisioning workflows by workflow and result code",
		},
		[]string{"workflow", "result"},
	)

	WorkflowDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "purevmware_workflow_duration_seconds",
			Help:    "Duration of provisioning workflows",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600}, // 1s to 10m
		},
		[]string{"workflow"},
	)

	// Backend task metrics
	TaskPollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purevmware_task_polls_total",
			Help: "Total number of backend task status polls",
		},
	)

	TaskTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purevmware_task_timeouts_total",
			Help: "Total number of backend tasks abandoned after the wait timeout",
		},
	)

	RescanFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purevmware_rescan_failures_total",
			Help: "Total number of host adapter rescans that failed after a datastore was created",
		},
	)
)

// ObserveWorkflow records the outcome of a workflow started at start.  The result label is
// the error code name, "OK" on success.
func ObserveWorkflow(workflow string, start time.Time, err error) {
	WorkflowsTotal.WithLabelValues(workflow, cerrors.Code(err).String()).Inc()
	WorkflowDurationSeconds.WithLabelValues(workflow).Observe(time.Since(start).Seconds())
}
