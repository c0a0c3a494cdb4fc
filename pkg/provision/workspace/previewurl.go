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
	"fmt"
	"strconv"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/routing"
)

// PreviewURLPathAttribute is the optional path of a command preview URL
const PreviewURLPathAttribute = "previewUrlPath"

// PreviewURLExposer exposes ports referenced by command preview URLs that no public server exposes already.
type PreviewURLExposer struct {
	Exposer routing.ExternalServerExposer
}

func (p *PreviewURLExposer) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	for _, command := range env.Commands() {
		rawPort, ok := command.Attributes[constants.PreviewURLAttribute]
		if !ok {
			continue
		}
		port, err := strconv.ParseInt(rawPort, 10, 32)
		if err != nil {
			env.AddWarning(fmt.Sprintf("Command %s has an invalid preview URL port %q", command.Name, rawPort))
			continue
		}
		if err := p.exposePort(env, identity, command, int32(port)); err != nil {
			return err
		}
	}
	return nil
}

func (p *PreviewURLExposer) exposePort(env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity,
	command environment.Command, port int32) error {

	for _, service := range env.Services() {
		for _, servicePort := range service.Spec.Ports {
			if servicePort.TargetPort.IntValue() != int(port) {
				continue
			}
			machineName := service.Annotations[constants.MachineNameAnnotation]
			machine := env.Machine(machineName)
			if machine == nil {
				continue
			}
			if isPubliclyExposed(machine, port) {
				return nil
			}
			ref := fmt.Sprintf("previewurl-%d", port)
			server := environment.ServerConfig{
				Port:     fmt.Sprintf("%d/tcp", port),
				Protocol: environment.HTTPProtocol,
				Path:     command.Attributes[PreviewURLPathAttribute],
				Public:   true,
			}
			machine.Servers[ref] = server
			return p.Exposer.Expose(env, routing.Target{
				MachineName: machineName,
				ServiceName: service.Name,
				Namespace:   identity.InfrastructureNamespace,
				Port:        servicePort,
				Servers:     map[string]environment.ServerConfig{ref: server},
			})
		}
	}
	env.AddWarning(fmt.Sprintf("Port %d of the preview URL of command %s is not declared by any server", port, command.Name))
	return nil
}

func isPubliclyExposed(machine *environment.InternalMachineConfig, port int32) bool {
	for _, server := range machine.Servers {
		if number, err := server.PortNumber(); err == nil && number == port && server.Public {
			return true
		}
	}
	return false
}
