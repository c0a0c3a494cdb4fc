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
	"errors"
	"time"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
)

// Failure reasons used as metric labels
const (
	ReasonProvisioning   = "provisioning"
	ReasonInfrastructure = "infrastructure"
	ReasonConflict       = "conflict"
	ReasonValidation     = "validation"
	ReasonUnknown        = "unknown"
)

func ProvisioningStepFinished(step string, duration time.Duration) {
	provisioningStepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

func ProvisioningStepFailed(step string) {
	provisioningFailures.WithLabelValues(step).Inc()
}

func WorkspaceStarting(strategy string) {
	workspaceStarts.WithLabelValues(strategy).Inc()
}

func WorkspaceRunning(strategy string, startedAt time.Time) {
	workspaceStartupTimesHist.WithLabelValues(strategy).Observe(time.Since(startedAt).Seconds())
}

func WorkspaceFailed(strategy string, err error) {
	workspaceFailures.WithLabelValues(strategy, FailureReason(err)).Inc()
}

func ContainerStartDispatched() {
	containerStartsDispatched.Inc()
}

func AsyncStoragePodDeleted() {
	asyncStoragePodsDeleted.Inc()
}

func BrokerPodsPruned(count int) {
	brokerPodsPruned.Add(float64(count))
}

// FailureReason classifies err by the error kinds of the dwerrors package.
func FailureReason(err error) string {
	var (
		conflictErr       *dwerrors.ConfigurationConflictError
		validationErr     *dwerrors.ValidationError
		infrastructureErr *dwerrors.InfrastructureError
		provisioningErr   *dwerrors.ProvisioningError
	)
	switch {
	case errors.As(err, &conflictErr):
		return ReasonConflict
	case errors.As(err, &validationErr):
		return ReasonValidation
	case errors.As(err, &infrastructureErr):
		return ReasonInfrastructure
	case errors.As(err, &provisioningErr):
		return ReasonProvisioning
	default:
		return ReasonUnknown
	}
}
