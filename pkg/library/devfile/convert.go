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

// Package devfile converts flattened devfiles into workspace environments.
package devfile

import (
	"fmt"
	"strconv"

	dw "github.com/devfile/api/v2/pkg/apis/workspaces/v1alpha2"
	"github.com/devfile/api/v2/pkg/attributes"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

const (
	// PodName is the name of the pod running all containers of a devfile
	PodName = "workspace"

	ProjectsVolumeName  = "projects"
	DefaultProjectsPath = "/projects"

	ProjectsRootEnvVar = "PROJECTS_ROOT"

	// ExecCommandType is the type of commands converted from exec commands
	ExecCommandType = "exec"
)

// Convert builds the environment of a flattened devfile: one pod holding a container per container component, and
// one machine per container carrying its endpoints and volumes. Containers referenced by preStart events become
// init containers.
func Convert(spec dw.DevWorkspaceTemplateSpec) (*environment.KubernetesEnvironment, error) {
	if spec.Parent != nil {
		return nil, &dwerrors.ValidationError{Field: "parent", Message: "devfile is not flattened"}
	}
	initComponents, mainComponents, err := partitionComponents(spec.DevWorkspaceTemplateSpecContent)
	if err != nil {
		return nil, err
	}

	volumeComponents := map[string]bool{}
	for _, component := range spec.Components {
		if component.Plugin != nil {
			return nil, &dwerrors.ValidationError{Field: "components." + component.Name, Message: "devfile is not flattened"}
		}
		if component.Volume != nil {
			volumeComponents[component.Name] = true
		}
	}

	env := environment.New()
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name: PodName,
		},
	}
	for _, component := range mainComponents {
		if component.Container == nil {
			continue
		}
		container, machine, err := convertContainer(component, volumeComponents)
		if err != nil {
			return nil, err
		}
		pod.Spec.Containers = append(pod.Spec.Containers, *container)
		env.SetMachine(common.MachineName(PodName, container.Name), machine)
	}
	for _, component := range initComponents {
		container, machine, err := convertContainer(component, volumeComponents)
		if err != nil {
			return nil, err
		}
		pod.Spec.InitContainers = append(pod.Spec.InitContainers, *container)
		env.SetMachine(common.MachineName(PodName, container.Name), machine)
	}
	if len(pod.Spec.Containers) > 0 || len(pod.Spec.InitContainers) > 0 {
		env.AddPod(pod)
	}

	for _, command := range spec.Commands {
		if command.Exec == nil {
			continue
		}
		env.AddCommand(environment.Command{
			Name:        command.Id,
			CommandLine: command.Exec.CommandLine,
			Type:        ExecCommandType,
			Attributes:  stringAttributes(command.Attributes),
		})
	}
	return env, nil
}

func convertContainer(component dw.Component, volumeComponents map[string]bool) (*corev1.Container, *environment.InternalMachineConfig, error) {
	if component.Container == nil {
		return nil, nil, &dwerrors.ValidationError{Field: "components." + component.Name, Message: "only container components can run as init containers"}
	}
	devfileContainer := component.Container
	machine := environment.NewMachineConfig()
	for key, value := range stringAttributes(component.Attributes) {
		machine.Attributes[key] = value
	}
	if err := setResourceAttributes(machine, devfileContainer.Container); err != nil {
		return nil, nil, &dwerrors.ValidationError{Field: "components." + component.Name, Message: err.Error()}
	}

	container := &corev1.Container{
		Name:    component.Name,
		Image:   devfileContainer.Image,
		Command: devfileContainer.Command,
		Args:    devfileContainer.Args,
	}
	for _, envVar := range devfileContainer.Env {
		container.Env = append(container.Env, corev1.EnvVar{Name: envVar.Name, Value: envVar.Value})
		machine.Env[envVar.Name] = envVar.Value
	}

	if devfileContainer.MountSources == nil || *devfileContainer.MountSources {
		projectsPath := devfileContainer.SourceMapping
		if projectsPath == "" {
			projectsPath = DefaultProjectsPath
		}
		machine.Volumes[ProjectsVolumeName] = environment.VolumeConfig{Path: projectsPath}
		container.Env = append(container.Env, corev1.EnvVar{Name: ProjectsRootEnvVar, Value: projectsPath})
	}
	for _, mount := range devfileContainer.VolumeMounts {
		if !volumeComponents[mount.Name] {
			return nil, nil, &dwerrors.ValidationError{
				Field:   "components." + component.Name + ".volumeMounts",
				Message: fmt.Sprintf("volume %s is not defined", mount.Name),
			}
		}
		path := mount.Path
		if path == "" {
			path = "/" + mount.Name
		}
		machine.Volumes[mount.Name] = environment.VolumeConfig{Path: path}
	}

	for _, endpoint := range devfileContainer.Endpoints {
		container.Ports = append(container.Ports, corev1.ContainerPort{
			Name:          common.NormalizeName(endpoint.Name),
			ContainerPort: int32(endpoint.TargetPort),
			Protocol:      corev1.ProtocolTCP,
		})
		if endpoint.Exposure == dw.NoneEndpointExposure {
			continue
		}
		machine.Servers[endpoint.Name] = serverFromEndpoint(endpoint)
	}
	return container, machine, nil
}

func serverFromEndpoint(endpoint dw.Endpoint) environment.ServerConfig {
	protocol := string(endpoint.Protocol)
	if protocol == "" {
		protocol = string(dw.HTTPEndpointProtocol)
	}
	transport := "tcp"
	if endpoint.Protocol == dw.UDPEndpointProtocol {
		transport = "udp"
	}
	server := environment.ServerConfig{
		Port:       fmt.Sprintf("%d/%s", endpoint.TargetPort, transport),
		Protocol:   protocol,
		Path:       endpoint.Path,
		Public:     endpoint.Exposure == "" || endpoint.Exposure == dw.PublicEndpointExposure,
		Attributes: stringAttributes(endpoint.Attributes),
	}
	if isSecure(endpoint.Secure) {
		if server.Attributes == nil {
			server.Attributes = map[string]string{}
		}
		server.Attributes["secure"] = "true"
	}
	return server
}

// isSecure accepts both the pointer and the value form of the secure flag used across devfile API versions.
func isSecure(secure any) bool {
	switch secure := secure.(type) {
	case *bool:
		return secure != nil && *secure
	case bool:
		return secure
	default:
		return false
	}
}

// setResourceAttributes records the container resources as machine attributes, in bytes and cores.
func setResourceAttributes(machine *environment.InternalMachineConfig, container dw.Container) error {
	memory := map[string]string{
		environment.MemoryLimitAttribute:   container.MemoryLimit,
		environment.MemoryRequestAttribute: container.MemoryRequest,
	}
	for attribute, value := range memory {
		if value == "" {
			continue
		}
		quantity, err := resource.ParseQuantity(value)
		if err != nil {
			return fmt.Errorf("failed to parse memory %q: %w", value, err)
		}
		machine.Attributes[attribute] = strconv.FormatInt(quantity.Value(), 10)
	}
	cpu := map[string]string{
		environment.CPULimitAttribute:   container.CpuLimit,
		environment.CPURequestAttribute: container.CpuRequest,
	}
	for attribute, value := range cpu {
		if value == "" {
			continue
		}
		quantity, err := resource.ParseQuantity(value)
		if err != nil {
			return fmt.Errorf("failed to parse cpu %q: %w", value, err)
		}
		machine.Attributes[attribute] = strconv.FormatFloat(quantity.AsApproximateFloat64(), 'f', -1, 64)
	}
	return nil
}

// stringAttributes flattens devfile attributes. String values are unquoted, other values keep their JSON form.
func stringAttributes(attrs attributes.Attributes) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for key, value := range attrs {
		var err error
		str := attrs.GetString(key, &err)
		if err != nil {
			str = string(value.Raw)
		}
		out[key] = str
	}
	return out
}
