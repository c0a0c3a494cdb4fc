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

	"k8s.io/utils/ptr"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// SecurityContextProvisioner sets the configured user and fs group on pods. OpenShift assigns these itself, so the
// step does nothing there.
type SecurityContextProvisioner struct {
	Config      *config.ControllerConfig
	IsOpenShift bool
}

func (p *SecurityContextProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, _ environment.RuntimeIdentity) error {
	if p.IsOpenShift {
		return nil
	}
	configured := p.Config.GetPodSecurityContext()
	for _, pod := range env.Pods() {
		if pod.Spec.SecurityContext == nil {
			pod.Spec.SecurityContext = configured.DeepCopy()
			continue
		}
		if pod.Spec.SecurityContext.RunAsUser == nil {
			pod.Spec.SecurityContext.RunAsUser = configured.RunAsUser
		}
		if pod.Spec.SecurityContext.FSGroup == nil {
			pod.Spec.SecurityContext.FSGroup = configured.FSGroup
		}
	}
	return nil
}

// TerminationGracePeriodProvisioner sets the configured grace period on pods that do not define one.
type TerminationGracePeriodProvisioner struct {
	Config *config.ControllerConfig
}

func (p *TerminationGracePeriodProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, _ environment.RuntimeIdentity) error {
	for _, pod := range env.Pods() {
		if pod.Spec.TerminationGracePeriodSeconds == nil {
			pod.Spec.TerminationGracePeriodSeconds = ptr.To(p.Config.GetTerminationGracePeriodSeconds())
		}
	}
	return nil
}

// ServiceAccountProvisioner runs workspace pods under the configured service account.
type ServiceAccountProvisioner struct {
	Config *config.ControllerConfig
}

func (p *ServiceAccountProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, _ environment.RuntimeIdentity) error {
	name := p.Config.GetServiceAccountName()
	if name == "" {
		return nil
	}
	for _, pod := range env.Pods() {
		pod.Spec.ServiceAccountName = name
	}
	return nil
}
