// Copyright (c) 2019-2025 Red Hat, Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	metricStepLabel     = "step"
	metricStrategyLabel = "strategy"
	metricReasonLabel   = "reason"
)

var (
	provisioningStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "che_workspace",
			Name:      "provisioning_step_seconds",
			Help:      "Time taken by each provisioning step, in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{
			metricStepLabel,
		},
	)
	provisioningFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "che_workspace",
			Name:      "provisioning_failures_total",
			Help:      "Number of failed provisioning steps",
		},
		[]string{
			metricStepLabel,
		},
	)
	workspaceStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "che_workspace",
			Name:      "started_total",
			Help:      "Number of workspace start attempts",
		},
		[]string{
			metricStrategyLabel,
		},
	)
	workspaceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "che_workspace",
			Name:      "fail_total",
			Help:      "Number of workspaces that failed to start",
		},
		[]string{
			metricStrategyLabel,
			metricReasonLabel,
		},
	)
	workspaceStartupTimesHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "che_workspace",
			Name:      "startup_time",
			Help:      "Total time taken to start a workspace, in seconds",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120, 130, 140, 150, 160, 170, 180},
		},
		[]string{
			metricStrategyLabel,
		},
	)
	containerStartsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "che_workspace",
			Name:      "container_start_events_total",
			Help:      "Number of container start events dispatched to handlers",
		},
	)
	asyncStoragePodsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "che_workspace",
			Name:      "async_storage_pods_deleted_total",
			Help:      "Number of idle async storage pods deleted",
		},
	)
	brokerPodsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "che_workspace",
			Name:      "broker_pods_pruned_total",
			Help:      "Number of finished plugin broker pods deleted",
		},
	)
)

func init() {
	// Register custom metrics with the global prometheus registry
	metrics.Registry.MustRegister(
		provisioningStepDuration,
		provisioningFailures,
		workspaceStarts,
		workspaceFailures,
		workspaceStartupTimesHist,
		containerStartsDispatched,
		asyncStoragePodsDeleted,
		brokerPodsPruned,
	)
}
