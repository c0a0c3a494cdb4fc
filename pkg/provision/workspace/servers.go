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
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/library/annotate"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/routing"
)

// ServersProvisioner creates a service for every machine that declares servers and exposes its public servers
// through the configured exposer.
type ServersProvisioner struct {
	Exposer routing.ExternalServerExposer
}

type servicePort struct {
	port    corev1.ServicePort
	servers map[string]environment.ServerConfig
}

func (p *ServersProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	for _, machineName := range env.MachineNames() {
		machine := env.Machine(machineName)
		if len(machine.Servers) == 0 {
			continue
		}
		if err := p.provisionMachine(env, identity, machineName, machine); err != nil {
			return err
		}
	}
	return nil
}

func (p *ServersProvisioner) provisionMachine(env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity,
	machineName string, machine *environment.InternalMachineConfig) error {

	pod, container, err := MachineContainer(env, machineName)
	if err != nil {
		return err
	}
	podName, containerName, _ := common.SplitMachineName(machineName)

	ports, err := groupServersByPort(machine.Servers)
	if err != nil {
		return fmt.Errorf("machine %s: %w", machineName, err)
	}

	if pod.Labels == nil {
		pod.Labels = map[string]string{}
	}
	pod.Labels[constants.OriginalNameLabel] = podName
	pod.Labels[constants.WorkspaceIDLabel] = identity.WorkspaceID

	annotations := annotate.MachineNameAnnotations(machineName)
	if err := annotate.AddServerAnnotations(annotations, machine.Servers); err != nil {
		return err
	}
	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:        common.ServiceName(identity.WorkspaceID, podName, containerName),
			Namespace:   identity.InfrastructureNamespace,
			Annotations: annotations,
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{
				constants.OriginalNameLabel: podName,
				constants.WorkspaceIDLabel:  identity.WorkspaceID,
			},
		},
	}
	for _, port := range ports {
		service.Spec.Ports = append(service.Spec.Ports, port.port)
		addContainerPort(container, port.port)
	}
	env.AddService(service)

	for _, port := range ports {
		public := map[string]environment.ServerConfig{}
		for ref, server := range port.servers {
			if server.Public {
				public[ref] = server
			}
		}
		if len(public) == 0 {
			continue
		}
		err := p.Exposer.Expose(env, routing.Target{
			MachineName: machineName,
			ServiceName: service.Name,
			Namespace:   identity.InfrastructureNamespace,
			Port:        port.port,
			Servers:     public,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// groupServersByPort collects servers sharing a port into one service port, ordered by port number.
func groupServersByPort(servers map[string]environment.ServerConfig) ([]servicePort, error) {
	byPort := map[string]*servicePort{}
	for ref, server := range servers {
		number, err := server.PortNumber()
		if err != nil {
			return nil, err
		}
		protocol := corev1.Protocol(strings.ToUpper(server.TransportProtocol()))
		key := fmt.Sprintf("%d/%s", number, protocol)
		port, ok := byPort[key]
		if !ok {
			port = &servicePort{
				port: corev1.ServicePort{
					Name:       servicePortName(number, protocol),
					Port:       number,
					TargetPort: intstr.FromInt32(number),
					Protocol:   protocol,
				},
				servers: map[string]environment.ServerConfig{},
			}
			byPort[key] = port
		}
		port.servers[ref] = server
	}

	var result []servicePort
	for _, port := range byPort {
		result = append(result, *port)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].port.Port != result[j].port.Port {
			return result[i].port.Port < result[j].port.Port
		}
		return result[i].port.Protocol < result[j].port.Protocol
	})
	return result, nil
}

func servicePortName(port int32, protocol corev1.Protocol) string {
	if protocol == corev1.ProtocolTCP {
		return fmt.Sprintf("server-%d", port)
	}
	return fmt.Sprintf("server-%d-%s", port, strings.ToLower(string(protocol)))
}

func addContainerPort(container *corev1.Container, port corev1.ServicePort) {
	for _, existing := range container.Ports {
		protocol := existing.Protocol
		if protocol == "" {
			protocol = corev1.ProtocolTCP
		}
		if existing.ContainerPort == port.Port && protocol == port.Protocol {
			return
		}
	}
	container.Ports = append(container.Ports, corev1.ContainerPort{
		ContainerPort: port.Port,
		Protocol:      port.Protocol,
	})
}
