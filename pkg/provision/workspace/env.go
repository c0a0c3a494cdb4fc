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
	"maps"
	"slices"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// EnvVarsProvisioner applies machine environment variables to containers. Variables are added sorted by name and
// replace values already set on the container.
type EnvVarsProvisioner struct{}

func (EnvVarsProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	for podName, pod := range podKeys(env) {
		for _, container := range allContainers(pod) {
			machineName := common.MachineName(podName, container.Name)
			if machine := env.Machine(machineName); machine != nil {
				for _, name := range slices.Sorted(maps.Keys(machine.Env)) {
					setEnv(container, name, machine.Env[name])
				}
			}
			setEnv(container, constants.MachineNameEnvVar, machineName)
			setEnv(container, constants.WorkspaceIDEnvVar, identity.WorkspaceID)
		}
	}
	return nil
}
