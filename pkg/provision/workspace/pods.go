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

// Package workspace contains the provisioning steps applied to a workspace environment before it is submitted.
// Every step mutates the environment in place and performs no cluster I/O.
package workspace

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// allContainers returns pointers to the init containers and containers of a pod.
func allContainers(pod *corev1.Pod) []*corev1.Container {
	var containers []*corev1.Container
	for idx := range pod.Spec.InitContainers {
		containers = append(containers, &pod.Spec.InitContainers[idx])
	}
	for idx := range pod.Spec.Containers {
		containers = append(containers, &pod.Spec.Containers[idx])
	}
	return containers
}

// mainContainers returns pointers to the regular containers of a pod.
func mainContainers(pod *corev1.Pod) []*corev1.Container {
	var containers []*corev1.Container
	for idx := range pod.Spec.Containers {
		containers = append(containers, &pod.Spec.Containers[idx])
	}
	return containers
}

// MachineContainer finds the pod and container a machine name refers to. Pods are looked up by the name they
// were added to the environment with.
func MachineContainer(env *environment.KubernetesEnvironment, machineName string) (*corev1.Pod, *corev1.Container, error) {
	podName, containerName, ok := common.SplitMachineName(machineName)
	if !ok {
		return nil, nil, fmt.Errorf("machine name %q does not identify a pod", machineName)
	}
	pod := env.Pod(podName)
	if pod == nil {
		return nil, nil, fmt.Errorf("pod %s of machine %s not found", podName, machineName)
	}
	for _, container := range allContainers(pod) {
		if container.Name == containerName {
			return pod, container, nil
		}
	}
	return nil, nil, fmt.Errorf("container %s of machine %s not found", containerName, machineName)
}

// EnsureVolume adds volume to the pod, replacing a volume with the same name.
func EnsureVolume(pod *corev1.Pod, volume corev1.Volume) {
	for idx, existing := range pod.Spec.Volumes {
		if existing.Name == volume.Name {
			pod.Spec.Volumes[idx] = volume
			return
		}
	}
	pod.Spec.Volumes = append(pod.Spec.Volumes, volume)
}

// EnsureVolumeMount adds mount to the container, replacing a mount at the same path.
func EnsureVolumeMount(container *corev1.Container, mount corev1.VolumeMount) {
	for idx, existing := range container.VolumeMounts {
		if existing.MountPath == mount.MountPath {
			container.VolumeMounts[idx] = mount
			return
		}
	}
	container.VolumeMounts = append(container.VolumeMounts, mount)
}

// setEnv sets an environment variable, overwriting an existing value.
func setEnv(container *corev1.Container, name, value string) {
	for idx, existing := range container.Env {
		if existing.Name == name {
			container.Env[idx] = corev1.EnvVar{Name: name, Value: value}
			return
		}
	}
	container.Env = append(container.Env, corev1.EnvVar{Name: name, Value: value})
}

// podKeys returns the pods of an environment with the names they were added under.
func podKeys(env *environment.KubernetesEnvironment) map[string]*corev1.Pod {
	pods := map[string]*corev1.Pod{}
	for _, name := range env.PodNames() {
		pods[name] = env.Pod(name)
	}
	return pods
}
