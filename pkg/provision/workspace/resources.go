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

package workspace

import (
	"context"

	corev1 "k8s.io/api/core/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/library/resources"
)

// ResourceLimitsProvisioner applies machine resource attributes to containers, filling missing values from the
// configured defaults.
type ResourceLimitsProvisioner struct {
	Config *config.ControllerConfig
}

func (p *ResourceLimitsProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, _ environment.RuntimeIdentity) error {
	defaults := p.defaults()
	for podName, pod := range podKeys(env) {
		for _, container := range mainContainers(pod) {
			machineName := common.MachineName(podName, container.Name)
			requirements := container.Resources.DeepCopy()
			if machine := env.Machine(machineName); machine != nil {
				fromAttributes, err := resources.ParseResourcesFromAttributes(machineName, machine.Attributes)
				if err != nil {
					return err
				}
				requirements = resources.Merge(requirements, fromAttributes)
			}
			requirements = resources.ApplyDefaults(requirements, defaults)
			requirements = resources.ClampRequests(requirements)
			container.Resources = *resources.FilterResources(requirements)
		}
	}
	return nil
}

func (p *ResourceLimitsProvisioner) defaults() *corev1.ResourceRequirements {
	defaults := &corev1.ResourceRequirements{
		Limits:   corev1.ResourceList{},
		Requests: corev1.ResourceList{},
	}
	if q := p.Config.GetDefaultMemoryLimit(); q != nil {
		defaults.Limits[corev1.ResourceMemory] = *q
	}
	if q := p.Config.GetDefaultMemoryRequest(); q != nil {
		defaults.Requests[corev1.ResourceMemory] = *q
	}
	if q := p.Config.GetDefaultCPULimit(); q != nil {
		defaults.Limits[corev1.ResourceCPU] = *q
	}
	if q := p.Config.GetDefaultCPURequest(); q != nil {
		defaults.Requests[corev1.ResourceCPU] = *q
	}
	return defaults
}
